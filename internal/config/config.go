package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type DB struct {
	User string `env:"USER" envDefault:"postgres"`
	Pass string `env:"PASS" envDefault:"postgres"`
	Host string `env:"HOST" envDefault:"postgres"`
	Port string `env:"PORT" envDefault:"5432"`
	Name string `env:"NAME" envDefault:"hookflow"`
}

type Worker struct {
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`  // due-retry scan cadence when the queue is idle
	ClaimBatch    int           `env:"CLAIM_BATCH" envDefault:"50"`    // max due retries claimed per scan
	QueueSize     int           `env:"QUEUE_SIZE" envDefault:"1024"`   // dispatch queue buffer
	RecoveryStale time.Duration `env:"RECOVERY_STALE" envDefault:"5m"` // age before an orphaned in-flight delivery is rescheduled
	HTTPAddr      string        `env:"HTTP_ADDR" envDefault:":8082"`   // operator API + metrics listen address
}

type Delivery struct {
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	MaxPayloadSize int           `env:"MAX_PAYLOAD_SIZE" envDefault:"1048576"` // bytes; larger payloads are truncated
	UserAgent      string        `env:"USER_AGENT" envDefault:"hookflow/1.0"`
}

type FakeReceiver struct {
	FailFirstN     int           `env:"FAIL_FIRST_N" envDefault:"0"`
	EndpointSecret string        `env:"ENDPOINT_SECRET"`
	Port           string        `env:"PORT" envDefault:":8081"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

type Config struct {
	AppName      string       `env:"APP_NAME" envDefault:"hookflow"`
	DB           DB           `envPrefix:"DB_"`
	Worker       Worker       `envPrefix:"WORKER_"`
	Delivery     Delivery     `envPrefix:"DELIVERY_"`
	FakeReceiver FakeReceiver `envPrefix:"FAKE_RECEIVER_"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present, so local runs don't need exports.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Pass, c.DB.Host, c.DB.Port, c.DB.Name)
}

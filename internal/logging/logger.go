package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/camayank/hookflow/internal/tracing"
)

// LogLevel represents the severity of the log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

// LogEntry is a structured log entry. The webhook correlation ids get
// first-class fields so they are queryable without digging into Fields.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      LogLevel       `json:"level"`
	Message    string         `json:"msg"`
	Service    string         `json:"service,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	TenantID   string         `json:"tenant_id,omitempty"`
	EventID    string         `json:"event_id,omitempty"`
	DeliveryID string         `json:"delivery_id,omitempty"`
	EndpointID string         `json:"endpoint_id,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`

	logger *Logger
}

// Logger emits JSON log lines with trace correlation.
type Logger struct {
	service string
	mu      sync.Mutex
	out     io.Writer
	exit    func(int)
}

// New creates a logger for the given service, writing to stdout.
func New(service string) *Logger {
	return &Logger{service: service, out: os.Stdout, exit: os.Exit}
}

// NewWithWriter creates a logger writing to the given writer. Used by tests.
func NewWithWriter(service string, w io.Writer) *Logger {
	return &Logger{service: service, out: w, exit: os.Exit}
}

func (l *Logger) entry() *LogEntry {
	return &LogEntry{
		Time:    time.Now().UTC(),
		Service: l.service,
		logger:  l,
	}
}

// WithContext creates a log entry carrying the trace id from the context.
func (l *Logger) WithContext(ctx context.Context) *LogEntry {
	e := l.entry()
	e.TraceID = tracing.GetTraceID(ctx)
	return e
}

// WithFields creates a log entry with arbitrary key-value pairs.
func (l *Logger) WithFields(fields map[string]any) *LogEntry {
	e := l.entry()
	e.Fields = fields
	return e
}

// Plain creates a basic log entry without context.
func (l *Logger) Plain() *LogEntry {
	return l.entry()
}

func (e *LogEntry) WithTenant(tenantID string) *LogEntry {
	e.TenantID = tenantID
	return e
}

func (e *LogEntry) WithEvent(eventID string) *LogEntry {
	e.EventID = eventID
	return e
}

func (e *LogEntry) WithDelivery(deliveryID string) *LogEntry {
	e.DeliveryID = deliveryID
	return e
}

func (e *LogEntry) WithEndpoint(endpointID string) *LogEntry {
	e.EndpointID = endpointID
	return e
}

func (e *LogEntry) WithField(key string, value any) *LogEntry {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

func (e *LogEntry) WithFields(fields map[string]any) *LogEntry {
	for k, v := range fields {
		e.WithField(k, v)
	}
	return e
}

func (e *LogEntry) WithError(err error) *LogEntry {
	if err != nil {
		e.WithField("error", err.Error())
	}
	return e
}

func (e *LogEntry) Debug(msg string)                  { e.log(LevelDebug, msg) }
func (e *LogEntry) Debugf(f string, args ...any)      { e.log(LevelDebug, fmt.Sprintf(f, args...)) }
func (e *LogEntry) Info(msg string)                   { e.log(LevelInfo, msg) }
func (e *LogEntry) Infof(f string, args ...any)       { e.log(LevelInfo, fmt.Sprintf(f, args...)) }
func (e *LogEntry) Warn(msg string)                   { e.log(LevelWarn, msg) }
func (e *LogEntry) Warnf(f string, args ...any)       { e.log(LevelWarn, fmt.Sprintf(f, args...)) }
func (e *LogEntry) Error(msg string)                  { e.log(LevelError, msg) }
func (e *LogEntry) Errorf(f string, args ...any)      { e.log(LevelError, fmt.Sprintf(f, args...)) }

// Fatal logs at fatal level and exits.
func (e *LogEntry) Fatal(msg string) {
	e.log(LevelFatal, msg)
	e.exitFn()(1)
}

func (e *LogEntry) Fatalf(f string, args ...any) {
	e.Fatal(fmt.Sprintf(f, args...))
}

func (e *LogEntry) exitFn() func(int) {
	if e.logger != nil && e.logger.exit != nil {
		return e.logger.exit
	}
	return os.Exit
}

func (e *LogEntry) log(level LogLevel, msg string) {
	e.Level = level
	e.Message = msg
	if len(e.Fields) == 0 {
		e.Fields = nil
	}

	out := io.Writer(os.Stdout)
	var mu *sync.Mutex
	if e.logger != nil {
		out = e.logger.out
		mu = &e.logger.mu
	}

	data, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		return
	}
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	fmt.Fprintln(out, string(data))
}

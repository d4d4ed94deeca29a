package main

import (
	"log"

	"github.com/camayank/hookflow/cmd/hookctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

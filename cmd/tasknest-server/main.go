package main

import (
	"log"

	"github.com/existflow/tasknest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("tasknest: %v", err)
	}
}

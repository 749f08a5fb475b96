package main

import (
	"log"
	"os"

	"github.com/policyfence/policyfence/internal/config"
	"github.com/policyfence/policyfence/internal/server"
)

func main() {
	cfg := config.Load()

	srv, err := server.New(cfg)
	if err != nil {
		// Usually a policy conflict; the registry is never built from an
		// ambiguous declaration set.
		log.Printf("Startup failed: %v", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		log.Printf("Server failed: %v", err)
		os.Exit(1)
	}
}

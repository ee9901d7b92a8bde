package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real environment variables win.
	_ = godotenv.Load()
	log.SetFlags(0)

	if err := newRootCmd().Execute(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("tenx: %v", err)
	}
}

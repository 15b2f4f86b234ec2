package main

import (
	"log"

	"github.com/tambolalive/tambola-backend/config"
)

// Standalone migration runner for deploy pipelines that migrate before
// rolling the server.
func main() {
	cfg := config.Load()
	config.SetupDatabase(cfg)
	log.Println("[INFO] Migrations complete")
}

// @title Topology Document Vault
// @version 0.1
// @description Upload topology documents to S3 with searchable metadata.

// @host localhost:8080
// @BasePath /api
// @query.collection.format multi
// @schemes http

package main

import (
	"log"

	"tush00nka/topovault/internal/app"
	"tush00nka/topovault/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	app.Run(cfg)
}

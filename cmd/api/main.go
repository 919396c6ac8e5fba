package main

import (
	"log"

	"autograde-backend/internal/bootstrap"
	"autograde-backend/internal/detector/httpengine"
	"autograde-backend/internal/shared/config"
	"autograde-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	engine := httpengine.New(cfg.InferenceURL, cfg.ModelPath, cfg.ConfidenceThreshold)

	app, err := bootstrap.Build(cfg, engine)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

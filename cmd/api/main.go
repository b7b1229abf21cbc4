package main

import (
	"log"

	"securelink-backend/internal/bootstrap"
	"securelink-backend/internal/shared/config"
	"securelink-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s (store=%s env=%s)", addr, cfg.ObjectStoreType, cfg.Env)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

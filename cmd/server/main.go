package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/sentinelauth/internal/server"
	"github.com/dmitrijs2005/sentinelauth/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("server startup failed: %v", err)
	}

	app.Run(ctx)

}

package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/server"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app.Run(ctx)
}

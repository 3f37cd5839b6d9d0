package main

import (
	"context"
	"log"

	"github.com/orbitcart/auth-service/internal/app"
)

func main() {
	application, err := app.New(context.Background())
	if err != nil {
		log.Fatalf("failed to start auth-service: %v", err)
	}
	if err := application.Run(); err != nil {
		log.Fatalf("auth-service exited: %v", err)
	}
}

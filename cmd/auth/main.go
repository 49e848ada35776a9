//go:generate swag init --generalInfo internal/auth/http/router.go --dir ../../ --output ../../api/auth --outputTypes go --instanceName auth

package main

import (
	"context"
	"log"

	"github.com/aussiebroadwan/habitauth/internal/auth/app"
)

func main() {
	cfg := app.LoadConfig()

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

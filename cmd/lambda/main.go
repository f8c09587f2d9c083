package main

import (
	"context"
	"log"
	"time"

	"appconfig/infrastructure/config"
	"appconfig/infrastructure/di"
	handler "appconfig/interfaces/lambda"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

func main() {
	coldStartTime := time.Now()
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	h := handler.NewHandler(container.Resolver, container.Logger)

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(coldStartTime)),
		zap.String("environment", cfg.Environment),
		zap.String("table", cfg.TableName),
	)

	lambda.StartWithOptions(h.Handle,
		lambda.WithEnableSIGTERM(func() {
			if err := container.Close(context.Background()); err != nil {
				log.Printf("Failed to close container: %v", err)
			}
		}),
	)
}

package di

import (
	"context"
	"errors"
	"fmt"

	"appconfig/application/ports"
	"appconfig/application/resolver"
	"appconfig/infrastructure/config"
	"appconfig/infrastructure/persistence/dynamodb"
	"appconfig/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Collector *observability.Collector      // nil unless EnableMetrics
	Tracing   *observability.TracerProvider // nil unless EnableTracing
	Store     ports.SectionStore
	Resolver  *resolver.Resolver
}

// InitializeContainer creates a fully wired container talking to DynamoDB
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return InitializeContainerWithClient(ctx, cfg, ProvideDynamoDBClient(awsCfg, cfg))
}

// InitializeContainerWithClient wires the container around an existing
// DynamoDB client.
func InitializeContainerWithClient(ctx context.Context, cfg *config.Config, client dynamodb.GetItemAPI) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tp, err := ProvideTracerProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	collector := ProvideCollector(cfg)
	store := ProvideSectionStore(client, cfg, logger, collector, tp)

	res, err := ProvideResolver(store, cfg, logger, collector)
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(ctx))
	}

	logger.Debug("Container initialized",
		zap.String("environment", cfg.Environment),
		zap.String("table", cfg.TableName),
		zap.String("region", cfg.AWSRegion),
		zap.Bool("metrics", collector != nil),
		zap.Bool("tracing", tp != nil),
		zap.Bool("circuit_breaker", cfg.CircuitBreaker.Enabled),
	)

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Collector: collector,
		Tracing:   tp,
		Store:     store,
		Resolver:  res,
	}, nil
}

// Close flushes traces and the logger
func (c *Container) Close(ctx context.Context) error {
	err := c.Tracing.Shutdown(ctx)
	// Sync fails on console outputs; nothing to recover there
	_ = c.Logger.Sync()
	return err
}

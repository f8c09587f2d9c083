package di

import (
	"context"

	"appconfig/application/ports"
	"appconfig/application/resolver"
	"appconfig/infrastructure/config"
	"appconfig/infrastructure/persistence"
	"appconfig/infrastructure/persistence/dynamodb"
	"appconfig/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

const serviceName = "appconfig"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level

	return zcfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at
// DynamoDBEndpoint when one is configured (DynamoDB Local).
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideCollector creates the metrics collector, or nil when metrics are disabled
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(serviceName)
}

// ProvideTracerProvider creates the tracer provider, or nil when tracing is disabled
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, serviceName, cfg.Mode, cfg.OTLPEndpoint)
}

// ProvideSectionStore creates the DynamoDB section store and its decorators.
// Order, outermost first: metrics, tracing, circuit breaker, DynamoDB.
func ProvideSectionStore(
	client dynamodb.GetItemAPI,
	cfg *config.Config,
	logger *zap.Logger,
	collector *observability.Collector,
	tp *observability.TracerProvider,
) ports.SectionStore {
	var store ports.SectionStore = dynamodb.NewSectionStore(
		client,
		cfg.TableName,
		logger,
		dynamodb.WithConsistentRead(cfg.ConsistentRead),
	)

	if cfg.CircuitBreaker.Enabled {
		cbConfig := persistence.DefaultCircuitBreakerConfig(serviceName + "-" + cfg.TableName)
		cbConfig.FailureRatio = cfg.CircuitBreaker.FailureRatio
		cbConfig.MinRequests = cfg.CircuitBreaker.MinRequests
		cbConfig.Timeout = cfg.CircuitBreaker.Timeout
		store = persistence.NewCircuitBreakerStore(store, cbConfig, logger)
	}

	if tp != nil {
		store = persistence.NewTracingStore(store, tp.Tracer(), cfg.TableName)
	}

	if collector != nil {
		store = persistence.NewMetricsStore(store, collector)
	}

	return store
}

// ProvideResolver creates the section resolver
func ProvideResolver(
	store ports.SectionStore,
	cfg *config.Config,
	logger *zap.Logger,
	collector *observability.Collector,
) (*resolver.Resolver, error) {
	opts := []resolver.Option{resolver.WithLogger(logger)}
	if collector != nil {
		opts = append(opts, resolver.WithCollector(collector))
	}
	return resolver.New(store, cfg.Environment, opts...)
}

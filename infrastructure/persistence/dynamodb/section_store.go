package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"appconfig/application/ports"
	apperrors "appconfig/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	// DefaultTableName is the table used when none is configured
	DefaultTableName = "app_config"

	configAttribute = "config"
	emptyConfig     = "{}"
)

// GetItemAPI is the part of the DynamoDB client the store needs, making it testable.
type GetItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// SectionKey is the primary key of a config record
type SectionKey struct {
	Component   string `dynamodbav:"component"`   // section name
	Environment string `dynamodbav:"environment"` // default or an environment name
}

// SectionStore reads config records from a DynamoDB table
type SectionStore struct {
	client         GetItemAPI
	tableName      string
	consistentRead bool
	logger         *zap.Logger
}

var _ ports.SectionStore = (*SectionStore)(nil)

// StoreOption configures a SectionStore
type StoreOption func(*SectionStore)

// WithConsistentRead enables strongly consistent reads
func WithConsistentRead(enabled bool) StoreOption {
	return func(s *SectionStore) {
		s.consistentRead = enabled
	}
}

// NewSectionStore creates a store reading from tableName.
// An empty tableName selects DefaultTableName.
func NewSectionStore(client GetItemAPI, tableName string, logger *zap.Logger, opts ...StoreOption) *SectionStore {
	if tableName == "" {
		tableName = DefaultTableName
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &SectionStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TableName returns the table the store reads from
func (s *SectionStore) TableName() string {
	return s.tableName
}

// FetchSection reads the config attribute for (section, environment).
// A record without a config attribute reads as an empty object.
func (s *SectionStore) FetchSection(ctx context.Context, section, environment string) (string, bool, error) {
	key, err := attributevalue.MarshalMap(SectionKey{Component: section, Environment: environment})
	if err != nil {
		return "", false, apperrors.NewBackendError("MarshalKey", err)
	}

	expr, err := expression.NewBuilder().
		WithProjection(expression.NamesList(expression.Name(configAttribute))).
		Build()
	if err != nil {
		return "", false, apperrors.NewBackendError("BuildProjection", err)
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(s.tableName),
		Key:                      key,
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
		ConsistentRead:           aws.Bool(s.consistentRead),
	})
	if err != nil {
		return "", false, s.classify(err, section, environment)
	}

	if out == nil || len(out.Item) == 0 {
		s.logger.Debug("Config record does not exist",
			zap.String("table", s.tableName),
			zap.String("section", section),
			zap.String("environment", environment),
		)
		return "", false, nil
	}

	attr, ok := out.Item[configAttribute]
	if !ok {
		return emptyConfig, true, nil
	}
	if _, isString := attr.(*types.AttributeValueMemberS); !isString {
		return "", false, apperrors.NewParseError(section, environment,
			fmt.Errorf("attribute '%s' is %T, expected a string", configAttribute, attr))
	}

	var raw string
	if err := attributevalue.Unmarshal(attr, &raw); err != nil {
		return "", false, apperrors.NewParseError(section, environment, err)
	}
	return raw, true, nil
}

func (s *SectionStore) classify(err error, section, environment string) error {
	appErr := apperrors.NewBackendError("GetItem", err).
		WithDetail("table", s.tableName).
		WithDetail("section", section).
		WithDetail("environment", environment)

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		appErr.WithCode(apiErr.ErrorCode())
	}

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		s.logger.Error("Config table does not exist",
			zap.String("table", s.tableName),
			zap.Error(err),
		)
	}

	return appErr
}

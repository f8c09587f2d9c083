package dynamodb

import (
	"context"
	"errors"
	"testing"

	apperrors "appconfig/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockDynamoDB struct {
	mock.Mock
}

func (m *mockDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func keyFor(table, section, environment string) interface{} {
	return mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		c, ok := in.Key["component"].(*types.AttributeValueMemberS)
		if !ok || c.Value != section {
			return false
		}
		e, ok := in.Key["environment"].(*types.AttributeValueMemberS)
		if !ok || e.Value != environment {
			return false
		}
		return aws.ToString(in.TableName) == table
	})
}

func item(config types.AttributeValue) *dynamodb.GetItemOutput {
	return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"component":   &types.AttributeValueMemberS{Value: "unit_test_comp"},
		"environment": &types.AttributeValueMemberS{Value: "unit_test"},
		"config":      config,
	}}
}

func TestFetchSection_Found(t *testing.T) {
	client := new(mockDynamoDB)
	client.On("GetItem", mock.Anything, keyFor("app_config", "unit_test_comp", "unit_test")).
		Return(item(&types.AttributeValueMemberS{Value: `{"password": "envtestpass"}`}), nil).Once()

	store := NewSectionStore(client, "", zaptest.NewLogger(t))
	raw, found, err := store.FetchSection(context.Background(), "unit_test_comp", "unit_test")

	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"password": "envtestpass"}`, raw)
	client.AssertExpectations(t)
}

func TestFetchSection_RequestShape(t *testing.T) {
	client := new(mockDynamoDB)
	var captured *dynamodb.GetItemInput
	client.On("GetItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.GetItemInput) }).
		Return(&dynamodb.GetItemOutput{}, nil)

	store := NewSectionStore(client, "test_table_new", nil, WithConsistentRead(true))
	_, _, err := store.FetchSection(context.Background(), "unit_test_comp", "default")
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "test_table_new", aws.ToString(captured.TableName))
	assert.Equal(t, "test_table_new", store.TableName())
	assert.True(t, aws.ToBool(captured.ConsistentRead))
	require.NotNil(t, captured.ProjectionExpression)
	assert.Contains(t, captured.ExpressionAttributeNames, aws.ToString(captured.ProjectionExpression))
	assert.Equal(t, "config", captured.ExpressionAttributeNames[aws.ToString(captured.ProjectionExpression)])
}

func TestFetchSection_NotFound(t *testing.T) {
	client := new(mockDynamoDB)
	client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	store := NewSectionStore(client, "app_config", zaptest.NewLogger(t))
	raw, found, err := store.FetchSection(context.Background(), "foo-doesnt-exist", "default")

	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, raw)
}

func TestFetchSection_MissingConfigAttribute(t *testing.T) {
	client := new(mockDynamoDB)
	client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"component": &types.AttributeValueMemberS{Value: "unit_test_comp"},
	}}, nil)

	store := NewSectionStore(client, "", nil)
	raw, found, err := store.FetchSection(context.Background(), "unit_test_comp", "default")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "{}", raw)
}

func TestFetchSection_NonStringConfig(t *testing.T) {
	tests := map[string]types.AttributeValue{
		"number": &types.AttributeValueMemberN{Value: "42"},
		"null":   &types.AttributeValueMemberNULL{Value: true},
		"map":    &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}},
	}

	for name, attr := range tests {
		t.Run(name, func(t *testing.T) {
			client := new(mockDynamoDB)
			client.On("GetItem", mock.Anything, mock.Anything).Return(item(attr), nil)

			store := NewSectionStore(client, "", nil)
			_, _, err := store.FetchSection(context.Background(), "unit_test_comp", "unit_test")

			require.Error(t, err)
			assert.True(t, apperrors.IsParseError(err))
		})
	}
}

func TestFetchSection_BackendErrors(t *testing.T) {
	t.Run("api error carries its code", func(t *testing.T) {
		client := new(mockDynamoDB)
		apiErr := &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized"}
		client.On("GetItem", mock.Anything, mock.Anything).Return(nil, apiErr)

		store := NewSectionStore(client, "app_config", zaptest.NewLogger(t))
		_, _, err := store.FetchSection(context.Background(), "unit_test_comp", "default")

		require.Error(t, err)
		assert.True(t, apperrors.IsBackendError(err))
		appErr := apperrors.GetAppError(err)
		assert.Equal(t, "AccessDeniedException", appErr.Code)
		assert.Equal(t, "app_config", appErr.Details["table"])
		assert.ErrorIs(t, err, apiErr)
	})

	t.Run("missing table", func(t *testing.T) {
		client := new(mockDynamoDB)
		client.On("GetItem", mock.Anything, mock.Anything).
			Return(nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")})

		store := NewSectionStore(client, "nope", zaptest.NewLogger(t))
		_, found, err := store.FetchSection(context.Background(), "unit_test_comp", "default")

		assert.False(t, found)
		assert.True(t, apperrors.IsBackendError(err))
		assert.Equal(t, "ResourceNotFoundException", apperrors.GetAppError(err).Code)
	})

	t.Run("transport error", func(t *testing.T) {
		client := new(mockDynamoDB)
		client.On("GetItem", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

		store := NewSectionStore(client, "", nil)
		_, _, err := store.FetchSection(context.Background(), "unit_test_comp", "default")

		assert.True(t, apperrors.IsBackendError(err))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Empty(t, apperrors.GetAppError(err).Code)
	})
}

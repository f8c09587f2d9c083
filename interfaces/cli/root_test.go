package cli

import (
	"bytes"
	"context"
	"testing"

	"appconfig/infrastructure/config"
	"appconfig/infrastructure/di"
	apperrors "appconfig/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type fakeTable struct {
	name  string
	items map[[2]string]string
}

func (f *fakeTable) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if aws.ToString(params.TableName) != f.name {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	component := params.Key["component"].(*types.AttributeValueMemberS).Value
	environment := params.Key["environment"].(*types.AttributeValueMemberS).Value
	raw, ok := f.items[[2]string{component, environment}]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"config": &types.AttributeValueMemberS{Value: raw},
	}}, nil
}

// syncCounter is a log sink that counts flushes.
type syncCounter struct {
	bytes.Buffer
	syncs int
}

func (s *syncCounter) Sync() error {
	s.syncs++
	return nil
}

func run(t *testing.T, args ...string) (string, *config.Config, error) {
	t.Helper()
	out, cfg, _, err := runCounting(t, args...)
	return out, cfg, err
}

// runCounting executes the command tree and reports how often the
// container's logger was flushed.
func runCounting(t *testing.T, args ...string) (string, *config.Config, *syncCounter, error) {
	t.Helper()

	table := &fakeTable{
		name: "app_config",
		items: map[[2]string]string{
			{"unit_test_comp", "default"}:   `{ "username": "testuser", "password": "testpass" }`,
			{"unit_test_comp", "unit_test"}: `{ "password": "envtestpass", "test_new_env_var": "test_val" }`,
			{"limits", "default"}:           `{ "max_conns": 100 }`,
		},
	}

	var used *config.Config
	sink := &syncCounter{}
	loadConfig := func() (*config.Config, error) {
		cfg := config.DefaultConfig()
		cfg.LogLevel = "error"
		return cfg, nil
	}
	factory := func(ctx context.Context, cfg *config.Config) (*di.Container, error) {
		used = cfg
		c, err := di.InitializeContainerWithClient(ctx, cfg, table)
		if err != nil {
			return nil, err
		}
		c.Logger = zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, zapcore.ErrorLevel))
		return c, nil
	}

	root := NewRootCommand(loadConfig, factory)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), used, sink, err
}

func TestGetCommand_Section(t *testing.T) {
	out, cfg, err := run(t, "get", "unit_test_comp", "-e", "unit_test")
	require.NoError(t, err)

	assert.Equal(t, "unit_test", cfg.Environment)
	assert.JSONEq(t, `{"username":"testuser","password":"envtestpass","test_new_env_var":"test_val"}`, out)
}

func TestGetCommand_Key(t *testing.T) {
	out, _, err := run(t, "get", "unit_test_comp", "password")
	require.NoError(t, err)
	assert.Equal(t, "testpass\n", out)

	out, _, err = run(t, "get", "limits", "max_conns")
	require.NoError(t, err)
	assert.Equal(t, "100\n", out)
}

func TestGetCommand_MissingKey(t *testing.T) {
	_, _, err := run(t, "get", "unit_test_comp", "bar-doesnt-exist", "--environment", "unit_test")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetCommand_WrongTable(t *testing.T) {
	_, cfg, err := run(t, "get", "unit_test_comp", "--table", "missing_table", "--consistent-read")
	require.Error(t, err)
	assert.True(t, apperrors.IsBackendError(err))
	assert.Equal(t, "missing_table", cfg.TableName)
	assert.True(t, cfg.ConsistentRead)
}

func TestGetCommand_Args(t *testing.T) {
	_, _, err := run(t, "get")
	assert.Error(t, err)

	_, _, err = run(t, "get", "a", "b", "c")
	assert.Error(t, err)
}

func TestDumpCommand(t *testing.T) {
	out, _, err := run(t, "dump", "limits", "unit_test_comp", "foo-doesnt-exist", "-e", "unit_test")
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"foo-doesnt-exist": {},
		"limits": {"max_conns": 100},
		"unit_test_comp": {"username":"testuser","password":"envtestpass","test_new_env_var":"test_val"}
	}`, out)
}

func TestFlagsOverrideConfig(t *testing.T) {
	_, cfg, err := run(t, "get", "limits", "--region", "eu-central-1", "--endpoint", "http://localhost:8000")
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", cfg.AWSRegion)
	assert.Equal(t, "http://localhost:8000", cfg.DynamoDBEndpoint)
}

func TestContainerClosedAfterCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"get succeeds", []string{"get", "limits"}, false},
		{"get fails", []string{"get", "unit_test_comp", "bar-doesnt-exist"}, true},
		{"dump fails", []string{"dump", "limits", "--table", "missing_table"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, sink, err := runCounting(t, tt.args...)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, 1, sink.syncs)
		})
	}
}

// Package lambda answers config lookups invoked as an AWS Lambda function.
package lambda

import (
	"context"

	"appconfig/application/resolver"
	apperrors "appconfig/pkg/errors"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"
)

// Request is the invocation payload. Without Key the whole section is returned.
type Request struct {
	Section string `json:"section"`
	Key     string `json:"key,omitempty"`
}

// Response is the invocation result. Values is always present for a
// whole-section request, even when the section is empty.
type Response struct {
	Section     string         `json:"section"`
	Environment string         `json:"environment"`
	Key         string         `json:"key,omitempty"`
	Value       any            `json:"value,omitempty"`
	Values      map[string]any `json:"values"`
	Error       *ErrorBody     `json:"error,omitempty"`
}

// ErrorBody describes a failed lookup
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Handler resolves lookups against a resolver that outlives invocations,
// so warm invocations are served from its cache.
type Handler struct {
	resolver *resolver.Resolver
	logger   *zap.Logger
}

// NewHandler creates a handler
func NewHandler(r *resolver.Resolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{resolver: r, logger: logger}
}

// Handle is the Lambda entry point. Lookup failures are reported in the
// response body; only an empty section name is an invocation error.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	resp := Response{
		Section:     req.Section,
		Environment: h.resolver.Environment(),
		Key:         req.Key,
	}

	if req.Section == "" {
		return resp, apperrors.NewValidationError("section is required")
	}

	fields := []zap.Field{zap.String("section", req.Section), zap.String("key", req.Key)}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		fields = append(fields, zap.String("request_id", lc.AwsRequestID))
	}
	// Values are secrets; only names are logged.
	h.logger.Info("Config lookup", fields...)

	section, err := h.resolver.Get(ctx, req.Section)
	if err != nil {
		resp.Error = errorBody(err)
		return resp, nil
	}

	if req.Key == "" {
		resp.Values = section.Map()
		return resp, nil
	}

	value, err := section.Get(req.Key)
	if err != nil {
		resp.Error = errorBody(err)
		return resp, nil
	}
	resp.Value = value
	return resp, nil
}

func errorBody(err error) *ErrorBody {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return &ErrorBody{Type: string(appErr.Type), Message: appErr.Message}
	}
	return &ErrorBody{Type: "UNKNOWN", Message: err.Error()}
}

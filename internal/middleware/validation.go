// internal/middleware/validation.go
package middleware

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	portalv1 "github.com/gurkanbulca/teamportal/api/portal/v1"
)

// ValidationConfig holds validation configuration
type ValidationConfig struct {
	MaxIDLength          int
	MaxTitleLength       int
	MaxDescriptionLength int
	MaxPageSize          int
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxIDLength:          128,
		MaxTitleLength:       200,
		MaxDescriptionLength: 5000,
		MaxPageSize:          500,
	}
}

// ValidationInterceptor rejects malformed requests before they reach the
// services. It only checks shape; domain rules stay with the services.
type ValidationInterceptor struct {
	config *ValidationConfig
}

// NewValidationInterceptor creates a new validation interceptor
func NewValidationInterceptor(config *ValidationConfig) *ValidationInterceptor {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &ValidationInterceptor{config: config}
}

// Unary returns a unary server interceptor for validation
func (v *ValidationInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if s, ok := req.(*structpb.Struct); ok {
			if err := v.validateRequest(s, info.FullMethod); err != nil {
				return nil, err
			}
		}
		return handler(ctx, req)
	}
}

// Stream returns a stream server interceptor for validation
func (v *ValidationInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		return handler(srv, &validatingServerStream{ServerStream: stream, v: v, method: info.FullMethod})
	}
}

// validatingServerStream validates the messages received on a stream.
type validatingServerStream struct {
	grpc.ServerStream
	v      *ValidationInterceptor
	method string
}

func (s *validatingServerStream) RecvMsg(m interface{}) error {
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return err
	}
	if msg, ok := m.(*structpb.Struct); ok {
		return s.v.validateRequest(msg, s.method)
	}
	return nil
}

// validateRequest validates a request by method
func (v *ValidationInterceptor) validateRequest(req *structpb.Struct, method string) error {
	var errors []string
	check := func(err error) {
		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	switch method {
	case portalv1.TaskService_CreateTask_FullMethodName:
		check(v.requireString(req, "title", v.config.MaxTitleLength))
		check(v.requireString(req, "assigneeId", v.config.MaxIDLength))
		check(v.requireString(req, "dueDate", 0))
		check(v.optionalString(req, "description", v.config.MaxDescriptionLength))
	case portalv1.TaskService_UpdateTask_FullMethodName:
		check(v.requireString(req, "id", v.config.MaxIDLength))
		check(v.optionalString(req, "title", v.config.MaxTitleLength))
		check(v.optionalString(req, "description", v.config.MaxDescriptionLength))
	case portalv1.TaskService_GetTask_FullMethodName,
		portalv1.TaskService_DeleteTask_FullMethodName,
		portalv1.TaskService_MarkNotificationRead_FullMethodName:
		check(v.requireString(req, "id", v.config.MaxIDLength))
	case portalv1.TaskService_TransitionTask_FullMethodName:
		check(v.requireString(req, "id", v.config.MaxIDLength))
		check(v.requireString(req, "status", 32))
		check(v.nonNegative(req, "expectedOccurrence", 0))
	case portalv1.TaskService_GetUserStatistics_FullMethodName:
		check(v.requireString(req, "userId", v.config.MaxIDLength))
	case portalv1.TaskService_ListTasks_FullMethodName,
		portalv1.TaskService_ListCompletions_FullMethodName,
		portalv1.TaskService_ListNotifications_FullMethodName,
		portalv1.TaskService_WatchTasks_FullMethodName:
		check(v.nonNegative(req, "pageSize", v.config.MaxPageSize))
	case portalv1.TaskService_GetLeaderboard_FullMethodName:
		check(v.nonNegative(req, "limit", 0))
	}

	if len(errors) > 0 {
		return status.Error(codes.InvalidArgument, strings.Join(errors, "; "))
	}
	return nil
}

func (v *ValidationInterceptor) requireString(req *structpb.Struct, field string, max int) error {
	value, ok := req.GetFields()[field]
	if !ok || strings.TrimSpace(value.GetStringValue()) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return v.optionalString(req, field, max)
}

func (v *ValidationInterceptor) optionalString(req *structpb.Struct, field string, max int) error {
	value, ok := req.GetFields()[field]
	if !ok {
		return nil
	}
	if _, isString := value.GetKind().(*structpb.Value_StringValue); !isString {
		return fmt.Errorf("%s must be a string", field)
	}
	if max > 0 && len(value.GetStringValue()) > max {
		return fmt.Errorf("%s too long (max %d characters)", field, max)
	}
	return nil
}

func (v *ValidationInterceptor) nonNegative(req *structpb.Struct, field string, max int) error {
	value, ok := req.GetFields()[field]
	if !ok {
		return nil
	}
	if _, isNumber := value.GetKind().(*structpb.Value_NumberValue); !isNumber {
		return fmt.Errorf("%s must be a number", field)
	}
	n := value.GetNumberValue()
	if n < 0 {
		return fmt.Errorf("%s cannot be negative", field)
	}
	if max > 0 && n > float64(max) {
		return fmt.Errorf("%s cannot exceed %d", field, max)
	}
	return nil
}

// internal/middleware/context_extractor.go
package middleware

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"github.com/gurkanbulca/teamportal/internal/models"
)

// ContextKeys for storing request metadata
type ContextKey string

const (
	ContextKeyIPAddress ContextKey = "ip_address"
	ContextKeyUserAgent ContextKey = "user_agent"
	ContextKeyUserID    ContextKey = "user_id"
	ContextKeyUserName  ContextKey = "user_name"
	ContextKeyUserEmail ContextKey = "user_email"
	ContextKeyUserRole  ContextKey = "user_role"
)

// MetadataExtractorInterceptor extracts client metadata and adds it to context
type MetadataExtractorInterceptor struct{}

// NewMetadataExtractorInterceptor creates a new metadata extractor interceptor
func NewMetadataExtractorInterceptor() *MetadataExtractorInterceptor {
	return &MetadataExtractorInterceptor{}
}

// Unary returns a unary server interceptor for metadata extraction
func (m *MetadataExtractorInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		return handler(m.enrichContext(ctx), req)
	}
}

// Stream returns a stream server interceptor for metadata extraction
func (m *MetadataExtractorInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		wrappedStream := &enrichedServerStream{
			ServerStream: stream,
			ctx:          m.enrichContext(stream.Context()),
		}
		return handler(srv, wrappedStream)
	}
}

// enrichContext extracts IP address and user agent from the context
func (m *MetadataExtractorInterceptor) enrichContext(ctx context.Context) context.Context {
	if ipAddress := extractIPAddress(ctx); ipAddress != "" {
		ctx = context.WithValue(ctx, ContextKeyIPAddress, ipAddress)
	}
	if userAgent := extractUserAgent(ctx); userAgent != "" {
		ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	}
	return ctx
}

// extractIPAddress extracts the client IP address from the context
func extractIPAddress(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}

	if tcpAddr, ok := p.Addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}

	addr := p.Addr.String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// extractUserAgent extracts the user agent from gRPC metadata
func extractUserAgent(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	for _, header := range []string{"user-agent", "grpc-user-agent", "x-user-agent"} {
		if values := md.Get(header); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// enrichedServerStream wraps grpc.ServerStream with enriched context
type enrichedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *enrichedServerStream) Context() context.Context {
	return s.ctx
}

func stringValue(ctx context.Context, key ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// GetIPAddressFromContext extracts IP address from context
func GetIPAddressFromContext(ctx context.Context) string {
	return stringValue(ctx, ContextKeyIPAddress)
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id := stringValue(ctx, ContextKeyUserID)
	return id, id != ""
}

// ActorFromContext returns the authenticated caller.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	id, ok := GetUserIDFromContext(ctx)
	if !ok {
		return models.Actor{}, false
	}
	return models.Actor{
		ID:    id,
		Name:  stringValue(ctx, ContextKeyUserName),
		Email: stringValue(ctx, ContextKeyUserEmail),
		Role:  stringValue(ctx, ContextKeyUserRole),
	}, true
}

// ClientInfo describes the caller of a request.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	UserID    string
	UserRole  string
}

// GetClientInfoFromContext extracts all client information from context
func GetClientInfoFromContext(ctx context.Context) *ClientInfo {
	return &ClientInfo{
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: stringValue(ctx, ContextKeyUserAgent),
		UserID:    stringValue(ctx, ContextKeyUserID),
		UserRole:  stringValue(ctx, ContextKeyUserRole),
	}
}

// LoggingInterceptor logs incoming requests
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	clientInfo := GetClientInfoFromContext(ctx)

	logLevel := "INFO"
	if err != nil {
		logLevel = "ERROR"
	}
	log.Printf("[%s] %s completed in %v (user: %s, ip: %s)",
		logLevel, info.FullMethod, time.Since(start), clientInfo.UserID, clientInfo.IPAddress)
	if err != nil {
		log.Printf("[ERROR] %s error: %v", info.FullMethod, err)
	}
	return resp, err
}

// StreamLoggingInterceptor logs streaming calls when they end
func StreamLoggingInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	clientInfo := GetClientInfoFromContext(ss.Context())

	logLevel := "INFO"
	if err != nil {
		logLevel = "ERROR"
	}
	log.Printf("[%s] %s stream closed after %v (user: %s, ip: %s)",
		logLevel, info.FullMethod, time.Since(start), clientInfo.UserID, clientInfo.IPAddress)
	if err != nil {
		log.Printf("[ERROR] %s error: %v", info.FullMethod, err)
	}
	return err
}

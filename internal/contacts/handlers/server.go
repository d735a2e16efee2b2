// Package handlers provides the gRPC and HTTP servers of the contacts
// service: the gRPC health service, and the JSON routes served through the
// grpc-gateway mux behind CORS and bearer authentication.
package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gartstein/crm/internal/contacts/auth"
	"github.com/go-chi/cors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	health       *health.Server
	httpServer   *http.Server
	healthConn   *grpc.ClientConn
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
// The gRPC server answers the standard health service.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	s := &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		health:       health.NewServer(),
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		logger:       logger.Named("server"),
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s
}

// SetServing flips the health status reported on /healthz and over gRPC.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// RegisterHTTPGateway builds the HTTP handler chain: CORS, then bearer
// authentication, then the gateway mux with the contact routes and a
// /healthz endpoint backed by the gRPC health service.
func (s *Server) RegisterHTTPGateway(dialOpts []grpc.DialOption, h *ContactHandler, verifier auth.Verifier, allowedOrigins []string) error {
	conn, err := grpc.NewClient("localhost"+s.grpcEndpoint, dialOpts...)
	if err != nil {
		return fmt.Errorf("failed to create health client: %w", err)
	}
	s.healthConn = conn

	handler, err := NewHTTPHandler(healthpb.NewHealthClient(conn), h, verifier, allowedOrigins, s.logger)
	if err != nil {
		return err
	}

	s.httpServer.Handler = handler
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// NewHTTPHandler assembles the HTTP handler chain around the given health
// client.
func NewHTTPHandler(healthClient healthpb.HealthClient, h *ContactHandler, verifier auth.Verifier, allowedOrigins []string, logger *zap.Logger) (http.Handler, error) {
	mux := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthClient))
	if err := h.Register(mux); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
		MaxAge:         300,
	})

	return corsHandler(auth.HTTPMiddleware(mux, verifier, logger, h.AuthOptions()...)), nil
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	// Start gRPC Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		s.SetServing(true)
		if err := s.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	// Start HTTP Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if s.healthConn != nil {
		_ = s.healthConn.Close()
	}
	s.grpcServer.GracefulStop()

	s.logger.Info("Servers stopped")
}

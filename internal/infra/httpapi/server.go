// Package httpapi exposes the explorer over JSON.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"pysnip/internal/domain"
	"pysnip/internal/infra/telemetry"
)

const defaultMaxBodyBytes = 1 << 20

// Explorer is the facade served by the API.
type Explorer interface {
	Catalog() domain.Catalog
	Category(key string) (domain.Category, bool)
	Tool(path string) (domain.Tool, bool)
	RelatedTools(categoryKey string, count int) []domain.Tool
	RandomTool() (domain.Tool, bool)
	Search(query string) []domain.Tool
	RecentTools(count int) []domain.Tool
	FeaturedTools(count int) []domain.Tool
	TopCategories(count int) []domain.Category
	Stats() domain.CatalogStats
	Execute(ctx context.Context, toolPath string, params map[string]any) domain.ExecutionResult
	ExtractParameters(toolPath string) ([]domain.ParameterDescriptor, error)
	ParameterSchema(toolPath string) (*jsonschema.Schema, error)
	ExtractDocumentation(toolPath string) (domain.DocInfo, error)
	ReadSource(toolPath string) (domain.SourceView, error)
	ReadGuide(toolPath string) (domain.GuideView, error)
	RefreshCatalog(ctx context.Context, force bool) (domain.Catalog, error)
}

type Options struct {
	Addr          string
	Explorer      Explorer
	EnableMetrics bool
	Registry      prometheus.Gatherer
	Health        *telemetry.HealthTracker
	MaxBodyBytes  int64
	Logger        *zap.Logger
}

type Server struct {
	addr     string
	explorer Explorer
	maxBody  int64
	logger   *zap.Logger
	handler  http.Handler
}

func New(opts Options) (*Server, error) {
	if opts.Explorer == nil {
		return nil, errors.New("explorer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := opts.Addr
	if addr == "" {
		addr = domain.DefaultServerListenAddress
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	s := &Server{
		addr:     addr,
		explorer: opts.Explorer,
		maxBody:  maxBody,
		logger:   logger.Named("httpapi"),
	}

	mux := http.NewServeMux()
	s.routes(mux)
	telemetry.RegisterHandlers(mux, telemetry.HTTPServerOptions{
		EnableMetrics: opts.EnableMetrics,
		EnableHealthz: true,
		Health:        opts.Health,
		Registry:      opts.Registry,
	})
	s.handler = s.withMiddleware(mux)
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api server failed to start: %w", err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("api server shutdown error", zap.Error(err))
			return err
		}
		s.logger.Info("api server stopped")
		return nil
	}
}

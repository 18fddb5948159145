// Package api serves the history tools over HTTP: one POST route per tool
// under /tools, plus the plugin manifest, metadata, OpenAPI and health
// documents.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
	"github.com/Sumatoshi-tech/timemachine/pkg/observability"
	"github.com/Sumatoshi-tech/timemachine/pkg/tools"
)

// defaultMaxBodyBytes bounds tool request bodies.
const defaultMaxBodyBytes = 1 << 20

// Options configures a Server. Zero-value fields use defaults.
type Options struct {
	// Logger receives request and failure logs. Nil uses slog.Default.
	Logger *slog.Logger

	// Tracer creates one server span per request. Nil uses the global provider.
	Tracer trace.Tracer

	// Metrics records RED metrics per route. Nil disables them.
	Metrics *observability.REDMetrics

	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler

	// CORSOrigins lists allowed origins. "*" allows any origin.
	CORSOrigins []string

	// Version is reported by /metadata and /openapi.json.
	Version string

	// MaxBodyBytes bounds request bodies. Zero uses 1 MiB.
	MaxBodyBytes int64
}

// Server answers HTTP requests with an Engine.
type Server struct {
	engine  *history.Engine
	opts    Options
	logger  *slog.Logger
	schemas map[string]*gojsonschema.Schema
}

// New creates a Server and compiles the request schemas.
func New(engine *history.Engine, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/Sumatoshi-tech/timemachine/pkg/api")
	}

	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	schemas := make(map[string]*gojsonschema.Schema, len(tools.Catalog))

	for _, tool := range tools.Catalog {
		data, err := tools.RequestSchema(tool.Name)
		if err != nil {
			return nil, err
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("compile request schema for %s: %w", tool.Name, err)
		}

		schemas[tool.Name] = schema
	}

	return &Server{
		engine:  engine,
		opts:    opts,
		logger:  opts.Logger,
		schemas: schemas,
	}, nil
}

// Handler returns the routed handler with request ids, CORS and telemetry.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /tools/"+tools.NameBlame, handleTool(s, tools.NameBlame, s.blame))
	mux.Handle("POST /tools/"+tools.NameCommitDiff, handleTool(s, tools.NameCommitDiff, s.commitDiff))
	mux.Handle("POST /tools/"+tools.NameSummarizeDiff, handleTool(s, tools.NameSummarizeDiff, s.summarizeDiff))
	mux.Handle("POST /tools/"+tools.NameCommitsAffecting, handleTool(s, tools.NameCommitsAffecting, s.commitsAffecting))
	mux.Handle("POST /tools/"+tools.NameFileAtCommit, handleTool(s, tools.NameFileAtCommit, s.fileAtCommit))

	mux.HandleFunc("GET /.well-known/ai-plugin.json", s.handleManifest)
	mux.HandleFunc("GET /metadata", s.handleMetadata)
	mux.HandleFunc("GET /openapi.json", s.handleOpenAPI)

	mux.Handle("GET /healthz", observability.HealthHandler())
	mux.Handle("GET /readyz", observability.ReadyHandler(s.engine.Ping))

	if s.opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.opts.MetricsHandler)
	}

	traced := observability.HTTPMiddleware(s.opts.Tracer, s.opts.Metrics, mux)

	return withRequestID(withCORS(s.opts.CORSOrigins, traced))
}

// Package docservice implements the HTTP surface of the document fill
// service: upload parsing, the extract/generate endpoints, error
// translation and the ambient concerns around them (request IDs, metrics,
// audit events, panic containment).
package docservice

import (
	"runtime/debug"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/docfill/engine/internal/common/config"
	"github.com/docfill/engine/internal/common/httputil"
	"github.com/docfill/engine/internal/common/requestid"
	"github.com/docfill/engine/internal/docservice/events"
	"github.com/docfill/engine/internal/docservice/metrics"
	"github.com/docfill/engine/internal/template"
)

const (
	// ServiceName identifies this service in health responses and logs
	ServiceName = "docfill-service"
	// Version is reported by the health endpoint
	Version = "1.0.0"
)

// Handler carries the per-process collaborators of the API endpoints.
// Stateless across requests; safe for concurrent use.
type Handler struct {
	cfg      *config.DSConfig
	reader   template.ArchiveReader
	renderer template.TagRenderer
	delims   template.Delimiters
	metrics  *metrics.MetricsCollector
	events   events.EventEmitter
	logger   *zap.Logger
}

// NewHandler wires the document pipeline behind the HTTP surface. Tag
// delimiters are pinned to the double-brace convention here, the single
// place where the engine is configured.
func NewHandler(cfg *config.DSConfig, mc *metrics.MetricsCollector, emitter events.EventEmitter, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		reader:   template.DocxReader{},
		renderer: template.Renderer{},
		delims:   template.DefaultDelimiters,
		metrics:  mc,
		events:   emitter,
		logger:   logger,
	}
}

// HandleRequest is the fasthttp entry point: request ID assignment,
// routing, and the outermost recover boundary. A panic in any handler is
// answered with a generic 500; the process never dies from one request.
func (h *Handler) HandleRequest(ctx *fasthttp.RequestCtx) {
	reqID := requestid.GenerateRequestID(string(ctx.Request.Header.Peek("X-Request-ID")))
	ctx.Response.Header.Set("X-Request-ID", reqID)

	h.metrics.IncActiveRequests()
	defer h.metrics.DecActiveRequests()

	defer func() {
		if r := recover(); r != nil {
			h.metrics.RecordPanicRecovered()
			h.logger.Error("Recovered panic in request handler",
				zap.String("request_id", reqID),
				zap.String("path", string(ctx.Path())),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			ctx.ResetBody()
			httputil.JSONError(ctx, "Internal server error", fasthttp.StatusInternalServerError)
			ctx.Response.Header.Set("X-Request-ID", reqID)
			h.metrics.RecordHTTPRequest(string(ctx.Path()), "500")
		}
	}()

	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case method == fasthttp.MethodPost && path == "/extract":
		h.handleExtract(ctx, reqID)
	case method == fasthttp.MethodPost && path == "/generate":
		h.handleGenerate(ctx, reqID)
	case method == fasthttp.MethodGet && path == "/health":
		h.handleHealth(ctx)
	case path == "/extract" || path == "/generate" || path == "/health":
		httputil.JSONError(ctx, "Method not allowed", fasthttp.StatusMethodNotAllowed)
		h.metrics.RecordHTTPRequest(path, "405")
	default:
		httputil.JSONError(ctx, "Not found", fasthttp.StatusNotFound)
		h.metrics.RecordHTTPRequest(path, "404")
	}
}

func (h *Handler) handleHealth(ctx *fasthttp.RequestCtx) {
	httputil.JSONResponse(ctx, true, "healthy", map[string]string{
		"service": ServiceName,
		"version": Version,
	}, fasthttp.StatusOK)
	h.metrics.RecordHTTPRequest("/health", "200")
}

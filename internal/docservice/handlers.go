package docservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/docfill/engine/internal/common/httputil"
	"github.com/docfill/engine/internal/docservice/events"
	"github.com/docfill/engine/internal/template"
	"github.com/docfill/engine/pkg/pattern"
	"github.com/docfill/engine/pkg/types"
)

// docxContentType is the MIME type of generated documents
const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// outputSuffix is appended to the uploaded base name for downloads
const outputSuffix = "_filled.docx"

// upload is a parsed multipart file field
type upload struct {
	name string
	data []byte
}

// readUpload pulls the "file" field out of the multipart form and checks
// its name against the configured accept patterns.
func (h *Handler) readUpload(ctx *fasthttp.RequestCtx) (*upload, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file field: %w", err)
	}

	if !pattern.MatchAny(h.cfg.Server.AcceptPatterns(), fh.Filename) {
		return nil, fmt.Errorf("file name %q does not match accepted patterns", fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}

	return &upload{name: fh.Filename, data: data}, nil
}

// handleExtract processes POST /extract requests
func (h *Handler) handleExtract(ctx *fasthttp.RequestCtx, reqID string) {
	started := time.Now().UTC()
	op := newOperation(h, ctx, types.OperationExtract, reqID, started)

	up, err := h.readUpload(ctx)
	if err != nil {
		op.fail(fasthttp.StatusBadRequest, types.ErrorTypeBadInput, err.Error())
		return
	}
	op.setUpload(up)
	h.metrics.RecordUploadSize(len(up.data))

	archive, err := h.reader.Open(up.data)
	if err != nil {
		op.fail(fasthttp.StatusBadRequest, types.ErrorTypeBadInput, err.Error())
		return
	}

	tags, err := template.ExtractTags(archive)
	switch {
	case errors.Is(err, template.ErrNoTags):
		op.fail(fasthttp.StatusUnprocessableEntity, types.ErrorTypeNoTags, "document contains no placeholder tags")
		return
	case err != nil:
		op.fail(fasthttp.StatusInternalServerError, types.ErrorTypeInternal, err.Error())
		return
	}

	op.tagCount = len(tags)
	h.metrics.RecordTagCount(len(tags))
	h.metrics.RecordExtractionDuration(time.Since(started).Seconds())

	httputil.JSONData(ctx, types.ExtractionResult{
		Tags:         tags,
		Count:        len(tags),
		TemplateHash: op.templateHash,
	}, fasthttp.StatusOK)
	op.succeed("200")

	h.logger.Info("Extraction completed",
		zap.String("request_id", reqID),
		zap.String("file_name", up.name),
		zap.Int("file_size", len(up.data)),
		zap.Int("tag_count", len(tags)),
		zap.String("template_hash", op.templateHash),
		zap.Duration("duration", time.Since(started)))
}

// handleGenerate processes POST /generate requests
func (h *Handler) handleGenerate(ctx *fasthttp.RequestCtx, reqID string) {
	started := time.Now().UTC()
	op := newOperation(h, ctx, types.OperationGenerate, reqID, started)

	up, err := h.readUpload(ctx)
	if err != nil {
		op.fail(fasthttp.StatusBadRequest, types.ErrorTypeBadInput, err.Error())
		return
	}
	op.setUpload(up)
	h.metrics.RecordUploadSize(len(up.data))

	mappingRaw := ctx.FormValue("mapping")
	if len(mappingRaw) == 0 {
		op.fail(fasthttp.StatusBadRequest, types.ErrorTypeBadInput, "missing mapping field")
		return
	}

	var values types.ValueMapping
	if err := json.Unmarshal(mappingRaw, &values); err != nil {
		op.fail(fasthttp.StatusBadRequest, types.ErrorTypeBadInput, fmt.Sprintf("malformed mapping: %v", err))
		return
	}
	op.tagCount = len(values)

	archive, err := h.reader.Open(up.data)
	if err != nil {
		op.fail(fasthttp.StatusBadRequest, types.ErrorTypeBadInput, err.Error())
		return
	}

	output, err := h.renderer.Render(archive, h.delims, values)
	if err != nil {
		op.fail(fasthttp.StatusInternalServerError, types.ErrorTypeRenderError, renderErrorMessage(err))
		return
	}

	h.metrics.RecordGenerationDuration(time.Since(started).Seconds())

	filename := deriveOutputFilename(up.name)
	httputil.Attachment(ctx, filename, docxContentType, output)
	ctx.Response.Header.Set("X-Request-ID", reqID)
	op.succeed("200")

	h.logger.Info("Generation completed",
		zap.String("request_id", reqID),
		zap.String("file_name", up.name),
		zap.String("output_name", filename),
		zap.Int("input_size", len(up.data)),
		zap.Int("output_size", len(output)),
		zap.Int("mapping_size", len(values)),
		zap.Duration("duration", time.Since(started)))
}

// renderErrorMessage surfaces the most specific explanation a render
// failure carries: the staged detail when present, the generic message
// otherwise.
func renderErrorMessage(err error) string {
	var re *template.RenderError
	if errors.As(err, &re) {
		return re.Error()
	}
	return fmt.Sprintf("document generation failed: %v", err)
}

// deriveOutputFilename turns an uploaded name into the download name:
// base name with its extension stripped, plus the fixed suffix.
func deriveOutputFilename(uploaded string) string {
	base := filepath.Base(uploaded)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSpace(base)
	if base == "" || base == "." {
		base = "document"
	}
	return base + outputSuffix
}

// operation tracks one API call for uniform error handling, metrics and
// audit events.
type operation struct {
	h       *Handler
	ctx     *fasthttp.RequestCtx
	name    string
	reqID   string
	started time.Time

	fileName     string
	fileSize     int64
	templateHash string
	tagCount     int
}

func newOperation(h *Handler, ctx *fasthttp.RequestCtx, name, reqID string, started time.Time) *operation {
	return &operation{
		h:       h,
		ctx:     ctx,
		name:    name,
		reqID:   reqID,
		started: started,
	}
}

func (op *operation) setUpload(up *upload) {
	op.fileName = up.name
	op.fileSize = int64(len(up.data))
	op.templateHash = template.Fingerprint(up.data)
}

// fail writes the JSON error, records metrics and emits the audit event.
// All error translation for the two API operations funnels through here.
func (op *operation) fail(statusCode int, errorType, message string) {
	httputil.JSONError(op.ctx, message, statusCode)
	op.ctx.Response.Header.Set("X-Request-ID", op.reqID)

	op.h.metrics.RecordHTTPRequest("/"+op.name, fmt.Sprintf("%d", statusCode))
	op.recordOutcome(errorType)
	op.emit(errorType, message)

	logFn := op.h.logger.Warn
	if statusCode >= fasthttp.StatusInternalServerError {
		logFn = op.h.logger.Error
	}
	logFn("Request failed",
		zap.String("request_id", op.reqID),
		zap.String("operation", op.name),
		zap.String("error_type", errorType),
		zap.String("error", message),
		zap.String("file_name", op.fileName),
		zap.Duration("duration", time.Since(op.started)))
}

// succeed records metrics and emits the audit event for a completed call.
func (op *operation) succeed(status string) {
	op.h.metrics.RecordHTTPRequest("/"+op.name, status)
	op.recordOutcome(types.StatusSuccess)
	op.emit("", "")
}

func (op *operation) recordOutcome(status string) {
	switch op.name {
	case types.OperationExtract:
		op.h.metrics.RecordExtraction(status)
	case types.OperationGenerate:
		op.h.metrics.RecordGeneration(status)
	}
}

func (op *operation) emit(errorType, errorMessage string) {
	event := &events.RequestEvent{
		RequestID:    op.reqID,
		Operation:    op.name,
		Status:       types.StatusSuccess,
		Duration:     time.Since(op.started),
		FileName:     op.fileName,
		FileSize:     op.fileSize,
		TagCount:     op.tagCount,
		TemplateHash: op.templateHash,
		ErrorType:    errorType,
		ErrorMessage: errorMessage,
		ClientIP:     clientIP(op.ctx),
		CreatedAt:    time.Now().UTC(),
	}
	if errorType != "" {
		event.Status = errorType
	}
	op.h.events.Emit(event)
}

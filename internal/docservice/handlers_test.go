package docservice

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/docfill/engine/internal/common/config"
	"github.com/docfill/engine/internal/doctest"
	"github.com/docfill/engine/internal/docservice/events"
	"github.com/docfill/engine/internal/docservice/metrics"
	"github.com/docfill/engine/internal/docx"
	"github.com/docfill/engine/internal/template"
	"github.com/docfill/engine/pkg/types"
)

// captureEmitter records emitted events for assertions.
type captureEmitter struct {
	events []*events.RequestEvent
}

func (c *captureEmitter) Emit(e *events.RequestEvent) { c.events = append(c.events, e) }
func (c *captureEmitter) Close() error                { return nil }

func newTestHandler(t *testing.T) (*Handler, *captureEmitter) {
	t.Helper()

	cm, err := config.NewDSConfigManager("does-not-exist.yaml", zap.NewNop())
	require.NoError(t, err)
	cfg := cm.GetConfig()

	pm := metrics.NewPrometheusMetricsWithRegistry("docfill", prometheus.NewRegistry(), zap.NewNop())
	mc := metrics.NewMetricsCollectorWithPrometheus(pm, zap.NewNop())
	emitter := &captureEmitter{}

	return NewHandler(cfg, mc, emitter, zap.NewNop()), emitter
}

// multipartRequest builds a fasthttp context carrying a multipart form.
func multipartRequest(t *testing.T, path, filename string, fileData []byte, fields map[string]string) *fasthttp.RequestCtx {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if fileData != nil {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	require.NoError(t, w.Close())

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI(path)
	ctx.Request.Header.SetContentType(w.FormDataContentType())
	ctx.Request.SetBody(body.Bytes())
	return ctx
}

func decodeResponse(t *testing.T, ctx *fasthttp.RequestCtx) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	return resp
}

func TestHandleExtract_Success(t *testing.T) {
	h, emitter := newTestHandler(t)
	input := doctest.BuildDocx([]string{"{{B}} {{A}} {{A}}"}, nil)
	ctx := multipartRequest(t, "/extract", "contract.docx", input, nil)

	h.HandleRequest(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	resp := decodeResponse(t, ctx)
	assert.Equal(t, true, resp["success"])

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"A", "B"}, data["tags"])
	assert.Equal(t, float64(2), data["count"])
	assert.Len(t, data["template_hash"], 16)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, "extract", emitter.events[0].Operation)
	assert.Equal(t, "success", emitter.events[0].Status)
	assert.Equal(t, "contract.docx", emitter.events[0].FileName)
	assert.Equal(t, 2, emitter.events[0].TagCount)
}

func TestHandleExtract_CaseSensitiveTags(t *testing.T) {
	h, _ := newTestHandler(t)
	input := doctest.BuildDocx([]string{"{{Name}} {{NAME}}"}, nil)
	ctx := multipartRequest(t, "/extract", "a.docx", input, nil)

	h.HandleRequest(ctx)

	data := decodeResponse(t, ctx)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"NAME", "Name"}, data["tags"])
}

func TestHandleExtract_NoTags(t *testing.T) {
	h, emitter := newTestHandler(t)
	input := doctest.BuildDocx([]string{"plain prose only"}, nil)
	ctx := multipartRequest(t, "/extract", "plain.docx", input, nil)

	h.HandleRequest(ctx)

	assert.Equal(t, fasthttp.StatusUnprocessableEntity, ctx.Response.StatusCode())
	resp := decodeResponse(t, ctx)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["message"], "no placeholder tags")

	require.Len(t, emitter.events, 1)
	assert.Equal(t, "no_tags", emitter.events[0].Status)
}

func TestHandleExtract_BadInput(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"not an archive", "notzip.docx", []byte("plain text, not a zip")},
		{"zip without document part", "empty.docx", doctest.BuildArchive(map[string]string{"foo.xml": "<a/>"})},
		{"empty file", "empty.docx", []byte{}},
		{"rejected extension", "contract.pdf", []byte("whatever")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			ctx := multipartRequest(t, "/extract", tt.filename, tt.data, nil)

			h.HandleRequest(ctx)

			assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
			assert.Equal(t, false, decodeResponse(t, ctx)["success"])
		})
	}
}

func TestHandleExtract_MissingFileField(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := multipartRequest(t, "/extract", "", nil, map[string]string{"other": "field"})

	h.HandleRequest(ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.Contains(t, decodeResponse(t, ctx)["message"], "missing file field")
}

func TestHandleGenerate_Success(t *testing.T) {
	h, emitter := newTestHandler(t)
	input := doctest.BuildDocx([]string{"Contract date: {{DATE}}", "Client: {{CLIENT_NAME}}"}, nil)
	mapping := `{"DATE":"2025-06-01","CLIENT_NAME":"Acme Oy"}`
	ctx := multipartRequest(t, "/generate", "agreement.docx", input, map[string]string{"mapping": mapping})

	h.HandleRequest(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, docxContentType, string(ctx.Response.Header.ContentType()))
	assert.Equal(t, `attachment; filename="agreement_filled.docx"`,
		string(ctx.Response.Header.Peek("Content-Disposition")))

	out, err := docx.Open(ctx.Response.Body())
	require.NoError(t, err)
	content, ok, err := out.Part(docx.DocumentPart)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(content), "2025-06-01")
	assert.Contains(t, string(content), "Acme Oy")
	assert.NotContains(t, string(content), "{{DATE}}")
	assert.NotContains(t, string(content), "{{CLIENT_NAME}}")

	require.Len(t, emitter.events, 1)
	assert.Equal(t, "generate", emitter.events[0].Operation)
	assert.Equal(t, "success", emitter.events[0].Status)
}

func TestHandleGenerate_OmittedKeySubstitutesEmpty(t *testing.T) {
	h, _ := newTestHandler(t)
	input := doctest.BuildDocx([]string{"Client: {{CLIENT_NAME}}"}, nil)
	ctx := multipartRequest(t, "/generate", "doc.docx", input, map[string]string{"mapping": `{}`})

	h.HandleRequest(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	out, err := docx.Open(ctx.Response.Body())
	require.NoError(t, err)
	content, _, err := out.Part(docx.DocumentPart)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "{{CLIENT_NAME}}")
}

func TestHandleGenerate_BadMapping(t *testing.T) {
	input := doctest.BuildDocx([]string{"{{A}}"}, nil)

	tests := []struct {
		name    string
		fields  map[string]string
		message string
	}{
		{"missing mapping", nil, "missing mapping"},
		{"invalid json", map[string]string{"mapping": "{not json"}, "malformed mapping"},
		{"wrong shape", map[string]string{"mapping": `["a","b"]`}, "malformed mapping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			ctx := multipartRequest(t, "/generate", "doc.docx", input, tt.fields)

			h.HandleRequest(ctx)

			assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
			assert.Contains(t, decodeResponse(t, ctx)["message"], tt.message)
		})
	}
}

func TestHandleGenerate_RenderFailure(t *testing.T) {
	h, emitter := newTestHandler(t)
	h.renderer = failingRenderer{}
	input := doctest.BuildDocx([]string{"{{A}}"}, nil)
	ctx := multipartRequest(t, "/generate", "doc.docx", input, map[string]string{"mapping": `{"A":"x"}`})

	h.HandleRequest(ctx)

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	assert.Contains(t, decodeResponse(t, ctx)["message"], "render failed at substitute: corrupt run state")

	require.Len(t, emitter.events, 1)
	assert.Equal(t, "render_error", emitter.events[0].Status)
}

type failingRenderer struct{}

func (failingRenderer) Render(template.Archive, template.Delimiters, types.ValueMapping) ([]byte, error) {
	return nil, &template.RenderError{Stage: "substitute", Err: errors.New("corrupt run state")}
}

func TestHandleRequest_Routing(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"unknown path", fasthttp.MethodGet, "/nope", fasthttp.StatusNotFound},
		{"get on extract", fasthttp.MethodGet, "/extract", fasthttp.StatusMethodNotAllowed},
		{"delete on generate", fasthttp.MethodDelete, "/generate", fasthttp.StatusMethodNotAllowed},
		{"post on health", fasthttp.MethodPost, "/health", fasthttp.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			ctx := &fasthttp.RequestCtx{}
			ctx.Request.Header.SetMethod(tt.method)
			ctx.Request.SetRequestURI(tt.path)

			h.HandleRequest(ctx)

			assert.Equal(t, tt.wantStatus, ctx.Response.StatusCode())
		})
	}
}

func TestHandleHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/health")

	h.HandleRequest(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	resp := decodeResponse(t, ctx)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "healthy", resp["message"])

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, ServiceName, data["service"])
	assert.Equal(t, Version, data["version"])
}

func TestHandleRequest_RequestIDHeader(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/health")
	ctx.Request.Header.Set("X-Request-ID", "my custom id!!")

	h.HandleRequest(ctx)

	got := string(ctx.Response.Header.Peek("X-Request-ID"))
	require.NotEmpty(t, got)
	// Sanitized custom portion survives behind the random prefix.
	assert.Contains(t, got, "my-custom-id")
	assert.NotContains(t, got, "!")
}

func TestHandleRequest_PanicRecovered(t *testing.T) {
	h, _ := newTestHandler(t)
	h.reader = panickingReader{}
	input := doctest.BuildDocx([]string{"{{A}}"}, nil)
	ctx := multipartRequest(t, "/extract", "doc.docx", input, nil)

	require.NotPanics(t, func() { h.HandleRequest(ctx) })

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	assert.Contains(t, decodeResponse(t, ctx)["message"], "Internal server error")
}

type panickingReader struct{}

func (panickingReader) Open([]byte) (template.Archive, error) {
	panic("corrupted state")
}

func TestDeriveOutputFilename(t *testing.T) {
	tests := []struct {
		uploaded string
		want     string
	}{
		{"contract.docx", "contract_filled.docx"},
		{"Offer Letter.DOCX", "Offer Letter_filled.docx"},
		{"no_extension", "no_extension_filled.docx"},
		{"", "document_filled.docx"},
		{".docx", "document_filled.docx"},
		{"dir/traversal.docx", "traversal_filled.docx"},
	}

	for _, tt := range tests {
		t.Run(tt.uploaded, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveOutputFilename(tt.uploaded))
		})
	}
}

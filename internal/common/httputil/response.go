package httputil

import (
	"encoding/json"
	"fmt"

	"github.com/valyala/fasthttp"
)

// APIResponse is the unified response format for all JSON endpoints
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// JSONResponse sends a JSON response with the unified format
func JSONResponse(ctx *fasthttp.RequestCtx, success bool, message string, data interface{}, statusCode int) {
	resp := APIResponse{
		Success: success,
		Message: message,
		Data:    data,
	}
	body, _ := json.Marshal(resp)
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// JSONError is a convenience wrapper for error responses
func JSONError(ctx *fasthttp.RequestCtx, message string, statusCode int) {
	JSONResponse(ctx, false, message, nil, statusCode)
}

// JSONSuccess is a convenience wrapper for success responses with no data
func JSONSuccess(ctx *fasthttp.RequestCtx, message string, statusCode int) {
	JSONResponse(ctx, true, message, nil, statusCode)
}

// JSONData is a convenience wrapper for success responses with data
func JSONData(ctx *fasthttp.RequestCtx, data interface{}, statusCode int) {
	JSONResponse(ctx, true, "", data, statusCode)
}

// Attachment sends binary content as a file download. The filename lands in
// the Content-Disposition header; quotes in it are stripped so the header
// stays parseable.
func Attachment(ctx *fasthttp.RequestCtx, filename, contentType string, body []byte) {
	sanitized := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		if c := filename[i]; c != '"' && c != '\r' && c != '\n' {
			sanitized = append(sanitized, c)
		}
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(contentType)
	ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(sanitized)))
	ctx.SetBody(body)
}

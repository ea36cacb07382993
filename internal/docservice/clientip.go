package docservice

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"
)

// clientIPHeaders are consulted in order before falling back to the
// connection's remote address.
var clientIPHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// clientIP returns the originating client address of a request. The first
// entry of a comma-separated X-Forwarded-For chain wins.
func clientIP(ctx *fasthttp.RequestCtx) string {
	for _, header := range clientIPHeaders {
		value := strings.TrimSpace(string(ctx.Request.Header.Peek(header)))
		if value == "" {
			continue
		}
		if idx := strings.IndexByte(value, ','); idx >= 0 {
			value = strings.TrimSpace(value[:idx])
		}
		if ip := normalizeIP(value); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(ctx.RemoteAddr().String())
	if err != nil {
		return normalizeIP(ctx.RemoteAddr().String())
	}
	return normalizeIP(host)
}

func normalizeIP(raw string) string {
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if idx := strings.IndexByte(raw, '%'); idx >= 0 {
		raw = raw[:idx]
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return raw
	}
	return ip.String()
}

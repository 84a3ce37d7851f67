package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/session-relay/internal/adapters/http/dto"
	"github.com/jsamuelsen/session-relay/internal/adapters/http/middleware"
	"github.com/jsamuelsen/session-relay/internal/app"
	"github.com/jsamuelsen/session-relay/internal/ports"
)

// hopHeaders are connection-scoped and never forwarded in either direction.
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Content-Length":      {},
}

// relayOwnedHeaders are set by the relay on the backend request.
var relayOwnedHeaders = map[string]struct{}{
	"Host":                         {},
	"Authorization":                {},
	"Accept-Encoding":              {},
	middleware.HeaderRequestID:     {},
	middleware.HeaderCorrelationID: {},
}

// RelayHandler forwards caller requests to the backend through the resilient
// client. It is a pass-through for one backend: the caller picks method, path,
// query, headers and body; the relay adds the session.
type RelayHandler struct {
	service *app.SessionService
}

// NewRelayHandler creates a new relay handler.
func NewRelayHandler(service *app.SessionService) *RelayHandler {
	return &RelayHandler{service: service}
}

// Relay handles ANY /api/v1/relay/*path.
//
// Backend responses, including 4xx and 5xx the relay does not act on, are
// written verbatim. A session end becomes 401 SESSION_ENDED, an open
// rate-limit window 429 with Retry-After, and an unreachable backend 503.
func (h *RelayHandler) Relay(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithErrorCode(c, dto.ErrorCodeTooLarge, "request body too large")
			return
		}

		RespondWithErrorCode(c, dto.ErrorCodeBadRequest, "reading request body failed")

		return
	}

	target := c.Param("path")
	if raw := c.Request.URL.RawQuery; raw != "" {
		target += "?" + raw
	}

	resp, err := h.service.Relay(c.Request.Context(), &ports.Request{
		Method: c.Request.Method,
		URL:    target,
		Header: outboundHeaders(c.Request.Header),
		Body:   body,
	})
	if err != nil {
		if upstream, ok := UpstreamResponse(err); ok {
			writeUpstream(c, upstream.Status, upstream.Header, upstream.Body)
			return
		}

		RespondWithError(c, err)

		return
	}

	writeUpstream(c, resp.Status, resp.Header, resp.Body)
}

// RegisterRelayRoutes registers the relay route on the given router group.
func (h *RelayHandler) RegisterRelayRoutes(rg *gin.RouterGroup) {
	rg.Any("/relay/*path", h.Relay)
}

func outboundHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))

	for name, values := range in {
		name = http.CanonicalHeaderKey(name)
		if _, skip := hopHeaders[name]; skip {
			continue
		}

		if _, skip := relayOwnedHeaders[name]; skip {
			continue
		}

		out[name] = append([]string(nil), values...)
	}

	return out
}

func writeUpstream(c *gin.Context, status int, header http.Header, body []byte) {
	dst := c.Writer.Header()

	for name, values := range header {
		name = http.CanonicalHeaderKey(name)
		if _, skip := hopHeaders[name]; skip {
			continue
		}

		// The relay's own request and correlation ids stay on the response.
		if name == middleware.HeaderRequestID || name == middleware.HeaderCorrelationID {
			continue
		}

		for _, v := range values {
			dst.Add(name, v)
		}
	}

	c.Status(status)

	if c.Request.Method == http.MethodHead || len(body) == 0 {
		c.Writer.WriteHeaderNow()
		return
	}

	_, _ = c.Writer.Write(body)
}

package middleware

import (
	"github.com/labstack/echo/v4"

	"cmc-proxy/internal/client"
)

// strippedRequestHeaders never reach a handler: hop-by-hop headers, and any
// caller attempt to supply its own upstream credential.
var strippedRequestHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	client.APIKeyHeader,
}

var securityResponseHeaders = map[string]string{
	echo.HeaderXContentTypeOptions: "nosniff",
	echo.HeaderXFrameOptions:       "DENY",
	echo.HeaderReferrerPolicy:      "no-referrer",
}

// SecurityHeaders scrubs inbound headers and sets response hardening headers
// before the handler runs, so they are present on committed responses too.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			in := c.Request().Header
			for _, h := range strippedRequestHeaders {
				in.Del(h)
			}

			out := c.Response().Header()
			for k, v := range securityResponseHeaders {
				out.Set(k, v)
			}
			return next(c)
		}
	}
}

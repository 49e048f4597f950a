package adapter

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// NewFastHTTPHandlerFunc adapts a net/http handler (such as promhttp's)
// to a fasthttp request handler.
func NewFastHTTPHandlerFunc(h http.Handler) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(h)
}

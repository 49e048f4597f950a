package middleware

import "github.com/valyala/fasthttp"

// HttpMiddleware wraps a request handler. Middlewares are applied in
// reverse slice order, so the first middleware runs first.
type HttpMiddleware interface {
	Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler
}

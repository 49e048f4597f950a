package serverutils

import "github.com/valyala/fasthttp"

// Write flushes data into the response body of the given request context.
func Write(data []byte, ctx *fasthttp.RequestCtx) (n int, err error) {
	return ctx.Write(data)
}

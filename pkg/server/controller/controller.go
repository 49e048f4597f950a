package controller

import "github.com/fasthttp/router"

// HttpController registers one or more routes on the server's router.
type HttpController interface {
	AddRoute(router *router.Router)
}

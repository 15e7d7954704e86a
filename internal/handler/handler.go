package handler

import (
	"github.com/gin-gonic/gin"
)

// Guards are the route-level middlewares a handler attaches to its routes.
type Guards struct {
	// Authenticate requires a valid bearer token.
	Authenticate gin.HandlerFunc
	// AdminOnly must follow Authenticate.
	AdminOnly gin.HandlerFunc
	// AuthLimit is the stricter limiter for login and signup.
	AuthLimit gin.HandlerFunc
}

// Handler is implemented by every route group.
type Handler interface {
	RegisterRoutes(rg *gin.RouterGroup, guards Guards)
}

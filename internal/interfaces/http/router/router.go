// Package router wires the admin API route groups onto a gin engine.
package router

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration. Public registrars mount
// under /api; admin registrars mount under /api/admin behind the admin
// middleware chain.
type Router struct {
	engine          *gin.Engine
	adminMiddleware []gin.HandlerFunc
	public          []RouteRegistrar
	admin           []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAdminMiddleware sets the middleware chain applied to the admin group
func WithAdminMiddleware(mw ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.adminMiddleware = mw
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterPublic adds a registrar mounted under /api
func (r *Router) RegisterPublic(registrar RouteRegistrar) *Router {
	r.public = append(r.public, registrar)
	return r
}

// RegisterAdmin adds a registrar mounted under /api/admin
func (r *Router) RegisterAdmin(registrar RouteRegistrar) *Router {
	r.admin = append(r.admin, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api")
	for _, registrar := range r.public {
		registrar.RegisterRoutes(api)
	}

	adminGroup := api.Group("/admin")
	if len(r.adminMiddleware) > 0 {
		adminGroup.Use(r.adminMiddleware...)
	}
	for _, registrar := range r.admin {
		registrar.RegisterRoutes(adminGroup)
	}
}

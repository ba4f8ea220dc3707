// Package http defines how bounded contexts plug into the API server.
package http

import "github.com/gin-gonic/gin"

// Module is a bounded context that owns a set of routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext hands modules the groups they may mount on. Auth and role
// checks are already applied to Protected and Admin.
type RouterContext struct {
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind a valid access token.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin behind the admin role.
	Admin *gin.RouterGroup
}

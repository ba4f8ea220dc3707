package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const actorContextKey = "httpkit.actor"

// Actor is the authenticated caller of a request, as asserted by its access
// token.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

// HasRole reports whether the token granted role.
func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// ActorFrom returns the actor stored by AuthRequired.
func ActorFrom(c *gin.Context) (Actor, bool) {
	value, ok := c.Get(actorContextKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	return actor, ok
}

// MustActor is ActorFrom for handlers behind AuthRequired. It aborts with 401
// when no actor is present, which only happens on a misconfigured route.
func MustActor(c *gin.Context) (Actor, bool) {
	actor, ok := ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	return actor, ok
}

package httpkit

import (
	"errors"
	"net/http"
	"strings"

	"sales_pipeline_backend/platform/config"
	"sales_pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleAdmin may override automatic assignment.
const RoleAdmin = "admin"

const (
	bearerPrefix    = "Bearer "
	tokenTypeAccess = "access"
)

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// hmacMethods are the only algorithms accepted for access tokens.
var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// accessClaims is the payload of an access token issued by the identity
// service. Refresh tokens share the secret and differ only in Type.
type accessClaims struct {
	jwt.RegisteredClaims
	Type  string   `json:"type"`
	Roles []string `json:"roles"`
}

// AuthRequired validates the bearer access token and stores the caller as an
// Actor on the gin context and its id on the request context for logging.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	keyFunc := func(*jwt.Token) (any, error) {
		return []byte(cfg.GetJWTAccessSecret()), nil
	}

	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		actor, err := parseActor(raw, keyFunc)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		c.Set(actorContextKey, actor)
		c.Request = c.Request.WithContext(logger.ContextWithActorID(c.Request.Context(), actor.ID.String()))
		c.Next()
	}
}

// RequireRole rejects callers whose token does not carry role. It must run
// after AuthRequired.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || !actor.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
			return
		}
		c.Next()
	}
}

func parseActor(raw string, keyFunc jwt.Keyfunc) (Actor, error) {
	var claims accessClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, keyFunc, jwt.WithValidMethods(hmacMethods)); err != nil {
		return Actor{}, err
	}
	if claims.Type != tokenTypeAccess {
		return Actor{}, errInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, errInvalidToken
	}
	return Actor{ID: id, Roles: claims.Roles}, nil
}

func bearerToken(header string) (string, bool) {
	raw, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
}

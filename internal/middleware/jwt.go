package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tsdip/backend/internal/identity"
	"github.com/tsdip/backend/pkg/response"
)

const (
	// ContextActor is the key for the authenticated actor in gin context.
	ContextActor = "actor"
	// ContextActorEmail is the key for the actor's email in gin context.
	ContextActorEmail = "actor_email"
)

// JWT returns a middleware that validates the bearer token and sets the
// authenticated Actor in context.
func JWT(jwtService *identity.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextActor, identity.Actor{ID: claims.ActorID, Type: claims.ActorType})
		c.Set(ContextActorEmail, claims.Email)
		c.Next()
	}
}

// RequireManager allows only platform manager actors.
func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if !actor.IsManager() {
			response.Forbidden(c, "manager access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Actor returns the authenticated actor stored by the JWT middleware.
func Actor(c *gin.Context) identity.Actor {
	return c.MustGet(ContextActor).(identity.Actor)
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/access"
	"github.com/lalith-99/realmhub/internal/apperr"
)

// Context keys set by the middleware in this package.
const (
	ContextKeyIdentity  = "identity"
	ContextKeyRequestID = "request_id"
)

// Authenticator is the part of access.Resolver the middleware needs.
type Authenticator interface {
	Authenticate(token string) (access.Identity, error)
}

// RequireAuth verifies the bearer token and stores the caller's Identity.
// Realm membership is not checked here; each RPC resolves its realm.
func RequireAuth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := access.BearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var id access.Identity
			if id, err = authn.Authenticate(token); err == nil {
				c.Set(ContextKeyIdentity, id)
				c.Next()
				return
			}
		}
		AbortWithError(c, err)
	}
}

// GetIdentity returns the Identity stored by RequireAuth, or the zero value
// when the route is not behind it.
func GetIdentity(c *gin.Context) access.Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return access.Identity{}
	}
	id, ok := val.(access.Identity)
	if !ok {
		return access.Identity{}
	}
	return id
}

// GetAccountID is shorthand for GetIdentity(c).AccountID.
func GetAccountID(c *gin.Context) uuid.UUID {
	return GetIdentity(c).AccountID
}

// AbortWithError stops the chain with a Connect error body. Internal errors
// are reported without detail.
func AbortWithError(c *gin.Context, err error) {
	code, status := apperr.Classify(err)
	msg := err.Error()
	if code == apperr.CodeInternal {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": msg})
}

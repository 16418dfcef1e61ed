package auth

import (
	"net/http"
	"strings"

	"GuardianSOS/pkg/middleware"
	"GuardianSOS/pkg/response"

	"github.com/gin-gonic/gin"
)

const ctxClaims = "auth_claims"

// Required rejects requests without a valid bearer token and stores the
// caller in the gin context under middleware.CtxUserID / CtxUsername.
func Required(tm *TokenManager, deny func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			abortUnauthorized(c, deny)
			return
		}
		claims, err := tm.Parse(c.Request.Context(), raw)
		if err != nil || claims.UserID == 0 {
			abortUnauthorized(c, deny)
			return
		}
		c.Set(middleware.CtxUserID, claims.UserID)
		c.Set(middleware.CtxUsername, claims.Username)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// CurrentClaims 仅在 Required 之后可用
func CurrentClaims(c *gin.Context) *Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func abortUnauthorized(c *gin.Context, deny func(c *gin.Context) string) {
	msg := "인증이 필요합니다"
	if deny != nil {
		msg = deny(c)
	}
	response.AbortWithStatus(c, http.StatusUnauthorized, msg)
}

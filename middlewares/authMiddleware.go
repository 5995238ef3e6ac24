package middlewares

import (
	"context"
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/grc_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthMiddleware validates a bearer token and stamps the caller's org,
// user and correlation id into the request context. Requests without an
// Authorization header pass through unauthenticated; handlers that need
// an org reject them.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ensureCorrelationId(c.Request.Context(), c.GetHeader("X-Correlation-Id"))

		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)
		if customClaim != nil {
			ctx = utils.SetOrgIdInContext(ctx, customClaim.OrgId)
			ctx = utils.SetUserIdInContext(ctx, customClaim.ID)
			ctx = utils.SetUserNameInContext(ctx, customClaim.ClientId)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func ensureCorrelationId(ctx context.Context, header string) context.Context {
	if header != "" {
		return utils.SetCorrelationIdInContext(ctx, header)
	}
	if _, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		return ctx
	}
	return utils.SetCorrelationIdInContext(ctx, uuid.NewString())
}

package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	reqctx "github.com/piresc/trackwash/internal/pkg/context"
	jwtpkg "github.com/piresc/trackwash/internal/pkg/jwt"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/internal/utils"
)

// JWTAuthMiddleware creates a middleware for JWT authentication
func JWTAuthMiddleware(config models.JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			// browsers cannot set headers on a websocket handshake
			if authHeader == "" && c.IsWebSocket() {
				if token := c.QueryParam("access_token"); token != "" {
					authHeader = "Bearer " + token
				}
			}
			if authHeader == "" {
				return utils.UnauthorizedResponse(c, "Authorization header is required")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return utils.UnauthorizedResponse(c, "Invalid authorization format")
			}

			claims, err := jwtpkg.ValidateToken(parts[1], config)
			if err != nil {
				return utils.UnauthorizedResponse(c, "Invalid token")
			}

			userID, err := claims.UserUUID()
			if err != nil {
				return utils.UnauthorizedResponse(c, "Invalid token: "+err.Error())
			}

			c.Set("user_id", userID)
			c.Set("user_role", claims.Role)
			c.SetRequest(c.Request().WithContext(reqctx.WithActorID(c.Request().Context(), userID)))

			return next(c)
		}
	}
}

// UserID returns the authenticated user set by JWTAuthMiddleware
func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get("user_id").(uuid.UUID)
	return id, ok
}

// IsStaff reports whether the authenticated role may act on other users' bookings
func IsStaff(c echo.Context) bool {
	role, _ := c.Get("user_role").(string)
	return role == jwtpkg.RoleAdmin || role == jwtpkg.RoleOperator
}

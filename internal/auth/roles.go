package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/domain"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// RequireRole ensures the agent has one of the allowed roles.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAgent ensures any authenticated agent is present.
func RequireAgent() fiber.Handler {
	return RequireRole()
}

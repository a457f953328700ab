// Package gateway implements the auth and request plumbing shared by awake's HTTP routes.
package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/awakeconnect/awake/apperr"
	"github.com/awakeconnect/awake/store"
	"github.com/gofiber/fiber/v2"
)

const userLocalsKey = "user"

// User is the authenticated caller, attached to the request by RequireAuth.
type User struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	StudentID string `json:"studentId,omitempty"`
	DonorID   string `json:"donorId,omitempty"`
}

// UserLookup enriches an authenticated user with linked profile ids.
type UserLookup interface {
	UserLinks(ctx context.Context, userID string) (store.UserLinks, error)
}

// UserFromCtx returns the user RequireAuth or OptionalAuth attached, if any.
func UserFromCtx(c *fiber.Ctx) (*User, bool) {
	u, ok := c.Locals(userLocalsKey).(*User)
	return u, ok && u != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, _ := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

func (j *JWTAuth) userFromHeader(header string) (*User, bool) {
	token, ok := bearerToken(header)
	if !ok {
		return nil, false
	}
	claims, err := j.Verify(token)
	if err != nil {
		return nil, false
	}
	return &User{ID: claims.Subject, Role: claims.Role, Email: claims.Email}, true
}

// RequireAuth rejects requests without a valid "Authorization: Bearer <token>" header.
// lookup may be nil; enrichment failures are ignored since the token alone authenticates.
func (j *JWTAuth) RequireAuth(lookup UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if _, ok := bearerToken(header); !ok {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
		}
		user, ok := j.userFromHeader(header)
		if !ok {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}
		if lookup != nil {
			if links, err := lookup.UserLinks(c.UserContext(), user.ID); err == nil {
				user.StudentID = links.StudentID
				user.DonorID = links.DonorID
			}
		}
		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// OptionalAuth attaches the user when a valid bearer token is present and never rejects.
func (j *JWTAuth) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user, ok := j.userFromHeader(c.Get(fiber.HeaderAuthorization)); ok {
			c.Locals(userLocalsKey, user)
		}
		return c.Next()
	}
}

func requireRoles(message string, allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromCtx(c)
		if !ok {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		for _, role := range allowed {
			if user.Role == role {
				return c.Next()
			}
		}
		return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": message})
	}
}

// RequireRole admits only users holding role.
func RequireRole(role string) fiber.Handler {
	return requireRoles(apperr.ErrForbidden.Message, role)
}

func RequireAdminOrSuperAdmin() fiber.Handler {
	return requireRoles("Forbidden: requires admin privileges", store.RoleAdmin, store.RoleSuperAdmin)
}

func RequireSuperAdmin() fiber.Handler {
	return requireRoles("Forbidden: requires super admin privileges", store.RoleSuperAdmin)
}

// OnlyRoles admits users whose role is listed. With no roles any logged-in user passes.
func OnlyRoles(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromCtx(c)
		if !ok || user.Role == "" {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"message": "Forbidden: role missing"})
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		for _, role := range allowed {
			if user.Role == role {
				return c.Next()
			}
		}
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"message": "Forbidden: requires role " + strings.Join(allowed, ", "),
		})
	}
}

//OptionsMiddleware answers CORS preflight requests
func OptionsMiddleware(c *fiber.Ctx) error {
	c.Set("Access-Control-Allow-Origin", "*")
	if c.Method() != fiber.MethodOptions {
		return c.Next()
	}
	c.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	c.Set("Access-Control-Allow-Headers", "authorization, origin, content-type, accept, X-Request-ID")
	c.Set("Allow", "HEAD,GET,POST,PUT,PATCH,DELETE,OPTIONS")
	return c.SendStatus(http.StatusOK)
}

package auth

import (
	"strings"

	"shifa-quality/app/workflow"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App) {
	auth := app.Group("/api/auth")

	// Public routes
	auth.Post("/login", LoginAPI)
	auth.Post("/logout", LogoutAPI)

	// Protected routes
	auth.Use(AuthMiddleware)
	auth.Get("/me", MeAPI)
	auth.Post("/change-password", ChangePasswordAPI)
}

// AuthMiddleware validates JWT and sets user context
func AuthMiddleware(c *fiber.Ctx) error {
	// Get JWT token from cookie or Authorization header
	var tokenString string

	// First try cookie
	tokenString = c.Cookies("jwt_token")

	// If no cookie, try Authorization header
	if tokenString == "" {
		auth := c.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			tokenString = strings.TrimPrefix(auth, "Bearer ")
		}
	}

	if tokenString == "" {
		return c.Status(401).JSON(fiber.Map{"error": "No token found"})
	}

	// Validate JWT token
	claims, err := ValidateJWT(tokenString)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid token"})
	}

	// Set user context
	c.Locals("user_id", claims.UserID)
	c.Locals("user_email", claims.Email)
	c.Locals("user_roles", claims.Roles)
	c.Locals("claims", claims)
	c.Locals("actor", workflow.Actor{
		ID:          claims.UserID,
		Departments: claims.Departments,
		Superuser:   claims.Superuser,
	})

	return c.Next()
}

// RoleMiddleware checks if user has required role
func RoleMiddleware(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userRoles := c.Locals("user_roles").([]string)

		for _, userRole := range userRoles {
			for _, allowedRole := range allowedRoles {
				if userRole == allowedRole {
					return c.Next()
				}
			}
		}

		return c.Status(403).JSON(fiber.Map{"error": "Insufficient permissions"})
	}
}

// GetActor returns the workflow actor the middleware derived from the claims.
func GetActor(c *fiber.Ctx) workflow.Actor {
	return c.Locals("actor").(workflow.Actor)
}

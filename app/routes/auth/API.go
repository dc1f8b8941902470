package auth

import (
	"database/sql"
	"time"

	"shifa-quality/app/config"
	"shifa-quality/app/database"

	"github.com/gofiber/fiber/v2"
)

func LoginAPI(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	user, err := database.GetUserByEmail(config.GetDB(), req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid credentials"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}

	if !CheckPasswordHash(req.Password, user.Password) {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	roles, err := database.GetUserRoles(config.GetDB(), user.ID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to get user roles"})
	}
	user.Roles = roles

	departments, err := database.GetUserDepartmentIDs(config.GetDB(), user.ID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to get user departments"})
	}

	// Convert roles to string slice; admins get the superuser flag
	roleNames := make([]string, len(roles))
	superuser := false
	for i, role := range roles {
		roleNames[i] = role.Name
		if role.Name == "admin" {
			superuser = true
		}
	}

	// Generate JWT token
	token, err := GenerateJWT(user.ID, user.Email, user.FirstName, user.LastName, roleNames, departments, superuser)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	// Record the login session; the scheduler purges it after expiry
	sessionID := GenerateSessionID()
	if err := database.CreateSession(config.GetDB(), sessionID, user.ID, GetSessionExpiry()); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create session"})
	}

	// Set JWT as HTTP-only cookie
	c.Cookie(&fiber.Cookie{
		Name:     "jwt_token",
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		HTTPOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: "Lax",
	})

	c.Cookie(&fiber.Cookie{
		Name:     "session_id",
		Value:    sessionID.String(),
		Expires:  GetSessionExpiry(),
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

func LogoutAPI(c *fiber.Ctx) error {
	// Tear down the session row if the client still carries one
	if sessionID := c.Cookies("session_id"); sessionID != "" {
		if session, err := database.GetSessionByID(config.GetDB(), sessionID); err == nil {
			_ = database.DeleteSession(config.GetDB(), session.ID)
		}
	}

	// Clear cookies
	c.Cookie(&fiber.Cookie{
		Name:     "jwt_token",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	c.Cookie(&fiber.Cookie{
		Name:     "session_id",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})

	return c.JSON(fiber.Map{"message": "Logged out"})
}

func ChangePasswordAPI(c *fiber.Ctx) error {
	type ChangePasswordRequest struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	if len(req.NewPassword) < 8 {
		return c.Status(400).JSON(fiber.Map{"error": "New password must be at least 8 characters"})
	}

	userID := c.Locals("user_id").(string)

	user, err := database.GetUserByID(config.GetDB(), userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}

	if !CheckPasswordHash(req.CurrentPassword, user.Password) {
		return c.Status(400).JSON(fiber.Map{"error": "Current password is incorrect"})
	}

	hashedPassword, err := HashPassword(req.NewPassword)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	if err := database.UpdateUserPassword(config.GetDB(), userID, hashedPassword); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to update password"})
	}

	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

func MeAPI(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*JWTClaims)
	return c.JSON(fiber.Map{
		"user_id":     claims.UserID,
		"email":       claims.Email,
		"first_name":  claims.FirstName,
		"last_name":   claims.LastName,
		"roles":       claims.Roles,
		"departments": claims.Departments,
		"superuser":   claims.Superuser,
	})
}

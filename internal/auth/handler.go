package auth

import (
	"strings"

	"optipos-backend/internal/config"
	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/auth/register-admin
// Bootstrap endpoint: only works while no admin user exists yet.
func RegisterAdminHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Username = strings.TrimSpace(strings.ToLower(body.Username))
		if body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Username and password are required")
		}

		var adminRole models.Role
		if err := database.DB.Where("name = ?", models.RoleAdmin).First(&adminRole).Error; err != nil {
			adminRole = models.Role{Name: models.RoleAdmin}
			if err := database.DB.Create(&adminRole).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not create admin role")
			}
		}

		var count int64
		database.DB.Model(&models.User{}).
			Where("role_id = ?", adminRole.ID).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "An admin user already exists")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		user := models.User{
			Username:     body.Username,
			PasswordHash: string(hash),
			RoleID:       adminRole.ID,
			IsActive:     true,
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create user")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     models.RoleAdmin,
		})
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Username = strings.TrimSpace(strings.ToLower(body.Username))

		var user models.User
		if err := database.DB.Preload("Role").Where("username = ?", body.Username).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}

		if !user.IsActive {
			return fiber.NewError(fiber.StatusUnauthorized, "Account is disabled")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not issue token")
		}

		return c.JSON(fiber.Map{
			"access_token": token,
			"token_type":   "bearer",
			"user": fiber.Map{
				"id":       user.ID,
				"username": user.Username,
				"role":     user.Role.Name,
			},
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userIDVal := c.Locals(CtxUserIDKey)

		var user models.User
		if userID, ok := userIDVal.(uint); ok {
			if err := database.DB.Preload("Role").First(&user, userID).Error; err == nil {
				return c.JSON(fiber.Map{
					"user_id":  user.ID,
					"username": user.Username,
					"role":     user.Role.Name,
					"active":   user.IsActive,
				})
			}
		}

		return fiber.NewError(fiber.StatusUnauthorized, "User not found")
	}
}

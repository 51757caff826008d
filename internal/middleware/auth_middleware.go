package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Auth validates the bearer token and stores its claims in Locals.
// user_id and organization_id are float64, as decoded from JSON.
func Auth(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		// 1. Ambil token dari Header Authorization
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token tidak ditemukan"})
		}

		// Format header biasanya: "Bearer <token>"
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		// 2. Parse dan Validasi Token
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.ErrUnauthorized
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token tidak valid atau kadaluwarsa"})
		}

		// 3. Simpan data user (Claims) ke Context agar bisa dipakai di Handler
		claims := token.Claims.(jwt.MapClaims)
		if _, ok := claims["user_id"].(float64); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token tidak memuat user_id"})
		}
		c.Locals("user_id", claims["user_id"])
		c.Locals("nip", claims["nip"])
		c.Locals("role", claims["role"])
		c.Locals("organization_id", claims["organization_id"])

		return c.Next()
	}
}

// UserID reads the authenticated employee id set by Auth.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("user_id").(float64)
	return uint(id)
}

func OrganizationID(c *fiber.Ctx) uint {
	id, _ := c.Locals("organization_id").(float64)
	return uint(id)
}

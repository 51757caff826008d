package handler

import (
	"context"
	"errors"

	"geo-attendance/internal/model"
	"geo-attendance/internal/usecase"

	"github.com/gofiber/fiber/v2"
)

type Authenticator interface {
	Login(ctx context.Context, nip, password string) (string, *model.Employee, error)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type LoginRequest struct {
	NIP      string `json:"nip"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Format data salah"})
	}

	token, emp, err := h.auth.Login(c.UserContext(), req.NIP, req.Password)
	if errors.Is(err, usecase.ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "NIP atau Password salah"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Terjadi kesalahan pada server"})
	}

	return c.JSON(fiber.Map{
		"message": "Login berhasil",
		"token":   token,
		"data": fiber.Map{
			"id":   emp.ID,
			"nip":  emp.NIP,
			"name": emp.Name,
			"role": emp.Role,
		},
	})
}

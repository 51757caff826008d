package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geo-attendance/internal/clock"
	"geo-attendance/internal/model"
	"geo-attendance/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid NIP or password")

type AuthUsecase struct {
	repo   repository.EmployeeRepository
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewAuthUsecase(repo repository.EmployeeRepository, secret string, ttl time.Duration) *AuthUsecase {
	return &AuthUsecase{repo: repo, secret: []byte(secret), ttl: ttl, clock: clock.SystemClock{}}
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (u *AuthUsecase) Login(ctx context.Context, nip, password string) (string, *model.Employee, error) {
	// 1. Cari pegawai berdasarkan NIP
	emp, err := u.repo.FindByNIP(ctx, nip)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("find employee: %w", err)
	}
	if !emp.IsActive {
		return "", nil, ErrInvalidCredentials
	}

	// 2. Bandingkan Password (Input vs Hash di DB)
	if err := bcrypt.CompareHashAndPassword([]byte(emp.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	// 3. Jika benar, buat Token JWT
	claims := jwt.MapClaims{
		"user_id":         emp.ID,
		"nip":             emp.NIP,
		"role":            emp.Role,
		"organization_id": emp.OrganizationID,
		"exp":             u.clock.Now().Add(u.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(u.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, emp, nil
}

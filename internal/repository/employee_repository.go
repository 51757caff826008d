package repository

import (
	"context"

	"geo-attendance/internal/model"

	"gorm.io/gorm"
)

type EmployeeRepository interface {
	FindByNIP(ctx context.Context, nip string) (*model.Employee, error)
	FindByID(ctx context.Context, id uint) (*model.Employee, error)
	Create(ctx context.Context, employee *model.Employee) error
}

type employeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db}
}

func (r *employeeRepository) FindByNIP(ctx context.Context, nip string) (*model.Employee, error) {
	var emp model.Employee
	err := r.db.WithContext(ctx).Preload("Organization").Where("nip = ?", nip).First(&emp).Error
	return &emp, err
}

func (r *employeeRepository) FindByID(ctx context.Context, id uint) (*model.Employee, error) {
	var emp model.Employee
	err := r.db.WithContext(ctx).Preload("Zones").First(&emp, id).Error
	return &emp, err
}

func (r *employeeRepository) Create(ctx context.Context, employee *model.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

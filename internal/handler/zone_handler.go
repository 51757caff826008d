package handler

import (
	"context"
	"errors"
	"strconv"

	"geo-attendance/internal/middleware"
	"geo-attendance/internal/model"
	"geo-attendance/internal/repository"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type EventLister interface {
	ListByZone(ctx context.Context, zoneID uint, limit int) ([]model.ClockEventEntry, error)
}

// ZoneHandler is the administrative surface for geofence zones. The
// attendance engine only ever reads zones.
type ZoneHandler struct {
	repo   repository.ZoneRepository
	events EventLister
}

func NewZoneHandler(repo repository.ZoneRepository, events EventLister) *ZoneHandler {
	return &ZoneHandler{repo: repo, events: events}
}

type ZoneRequest struct {
	Name                 string  `json:"name"`
	Address              string  `json:"address"`
	CenterLatitude       float64 `json:"center_latitude"`
	CenterLongitude      float64 `json:"center_longitude"`
	RadiusMeters         float64 `json:"radius_meters"`
	RequireForClockIn    bool    `json:"require_for_clock_in"`
	RequireForClockOut   bool    `json:"require_for_clock_out"`
	AllowOverrideOutside bool    `json:"allow_override_outside"`
}

func (r ZoneRequest) apply(z *model.GeofenceZone) {
	z.Name = r.Name
	z.Address = r.Address
	z.CenterLatitude = r.CenterLatitude
	z.CenterLongitude = r.CenterLongitude
	z.RadiusMeters = r.RadiusMeters
	z.RequireForClockIn = r.RequireForClockIn
	z.RequireForClockOut = r.RequireForClockOut
	z.AllowOverrideOutside = r.AllowOverrideOutside
}

type AssignRequest struct {
	EmployeeIDs []uint `json:"employee_ids"`
}

func (h *ZoneHandler) List(c *fiber.Ctx) error {
	zones, err := h.repo.ListByOrganization(c.UserContext(), middleware.OrganizationID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Gagal mengambil data zona"})
	}
	return c.JSON(fiber.Map{"data": zones})
}

func (h *ZoneHandler) Get(c *fiber.Ctx) error {
	zone, status, err := h.find(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"data": zone})
}

func (h *ZoneHandler) Create(c *fiber.Ctx) error {
	var req ZoneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Data tidak valid"})
	}

	zone := model.GeofenceZone{OrganizationID: middleware.OrganizationID(c)}
	req.apply(&zone)
	if err := repository.ToZone(zone).Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.repo.Create(c.UserContext(), &zone); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Gagal menambah zona"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Zona berhasil ditambahkan", "data": zone})
}

func (h *ZoneHandler) Update(c *fiber.Ctx) error {
	zone, status, err := h.find(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	var req ZoneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Data tidak valid"})
	}
	req.apply(zone)
	if err := repository.ToZone(*zone).Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.repo.Update(c.UserContext(), zone); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Gagal mengubah zona"})
	}
	return c.JSON(fiber.Map{"message": "Zona berhasil diubah", "data": zone})
}

func (h *ZoneHandler) Delete(c *fiber.Ctx) error {
	zone, status, err := h.find(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.repo.Delete(c.UserContext(), zone.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Gagal menghapus zona"})
	}
	return c.JSON(fiber.Map{"message": "Zona berhasil dihapus"})
}

func (h *ZoneHandler) Assign(c *fiber.Ctx) error {
	return h.assignment(c, h.repo.Assign, "Pegawai berhasil ditugaskan ke zona")
}

func (h *ZoneHandler) Unassign(c *fiber.Ctx) error {
	return h.assignment(c, h.repo.Unassign, "Penugasan zona dicabut")
}

func (h *ZoneHandler) assignment(c *fiber.Ctx, op func(context.Context, uint, []uint) error, done string) error {
	zone, status, err := h.find(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	var req AssignRequest
	if err := c.BodyParser(&req); err != nil || len(req.EmployeeIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "employee_ids wajib diisi"})
	}
	if err := op(c.UserContext(), zone.ID, req.EmployeeIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Pegawai tidak ditemukan"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Gagal memperbarui penugasan"})
	}
	return c.JSON(fiber.Map{"message": done})
}

// Events lists the audit trail of a zone for compliance review.
func (h *ZoneHandler) Events(c *fiber.Ctx) error {
	zone, status, err := h.find(c)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit < 1 || limit > 1000 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit harus antara 1 dan 1000"})
	}
	rows, err := h.events.ListByZone(c.UserContext(), zone.ID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Gagal mengambil log zona"})
	}
	return c.JSON(fiber.Map{"data": rows})
}

// find loads the :id zone and hides zones of other organizations.
func (h *ZoneHandler) find(c *fiber.Ctx) (*model.GeofenceZone, int, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return nil, fiber.StatusBadRequest, errors.New("ID zona tidak valid")
	}
	zone, err := h.repo.FindByID(c.UserContext(), uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && zone.OrganizationID != middleware.OrganizationID(c)) {
		return nil, fiber.StatusNotFound, errors.New("Zona tidak ditemukan")
	}
	if err != nil {
		return nil, fiber.StatusInternalServerError, errors.New("Gagal mengambil data zona")
	}
	return zone, 0, nil
}

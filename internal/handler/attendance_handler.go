package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"geo-attendance/internal/attendance"
	"geo-attendance/internal/clock"
	"geo-attendance/internal/consent"
	"geo-attendance/internal/geofence"
	"geo-attendance/internal/location"
	"geo-attendance/internal/logging"
	"geo-attendance/internal/middleware"
	"geo-attendance/internal/model"
	"geo-attendance/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-hclog"
)

type ClockService interface {
	Perform(ctx context.Context, req usecase.ClockRequest) (attendance.ClockEvent, error)
	Status(ctx context.Context, subjectID uint) (attendance.Session, error)
	Preview(ctx context.Context, subjectID uint, pos *location.Position) (geofence.Decision, error)
}

type ConsentService interface {
	Get(ctx context.Context, subjectID uint) (consent.Record, bool, error)
	Set(ctx context.Context, subjectID uint, granted bool) (consent.Record, error)
	SetScopes(ctx context.Context, subjectID uint, s consent.Scopes) (consent.Record, error)
}

type HistoryReader interface {
	History(ctx context.Context, employeeID uint, limit int) ([]model.AttendanceRecord, error)
}

type AttendanceHandler struct {
	clock   ClockService
	consent ConsentService
	history HistoryReader
	now     clock.Clock
	log     hclog.Logger
}

func NewAttendanceHandler(cs ClockService, gate ConsentService, history HistoryReader, clk clock.Clock, logger hclog.Logger) *AttendanceHandler {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &AttendanceHandler{
		clock:   cs,
		consent: gate,
		history: history,
		now:     clk,
		log:     logging.OrNull(logger).Named("http"),
	}
}

// FixRequest is the device fix read by the client. captured_at defaults to
// the time the request arrived.
type FixRequest struct {
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Accuracy   float64    `json:"accuracy"`
	CapturedAt *time.Time `json:"captured_at"`
}

func (f *FixRequest) position(now time.Time) *location.Position {
	if f == nil {
		return nil
	}
	p := location.Position{
		Latitude:       f.Latitude,
		Longitude:      f.Longitude,
		AccuracyMeters: f.Accuracy,
		CapturedAt:     now,
	}
	if f.CapturedAt != nil {
		p.CapturedAt = *f.CapturedAt
	}
	return &p
}

// ConsentAnswer is the subject's reply to the consent prompt.
type ConsentAnswer struct {
	Granted   *bool `json:"granted"`
	Dismissed bool  `json:"dismissed"`
}

type ClockActionRequest struct {
	Fix     *FixRequest    `json:"fix"`
	Consent *ConsentAnswer `json:"consent"`
}

var rejectionStatus = map[attendance.RejectionKind]int{
	attendance.KindConsentRequired:     fiber.StatusPreconditionRequired,
	attendance.KindConsentDeclined:     fiber.StatusForbidden,
	attendance.KindLocationUnavailable: fiber.StatusUnprocessableEntity,
	attendance.KindGeofenceViolation:   fiber.StatusForbidden,
	attendance.KindStateConflict:       fiber.StatusConflict,
	attendance.KindActionInProgress:    fiber.StatusConflict,
	attendance.KindRemoteFailure:       fiber.StatusServiceUnavailable,
}

func (h *AttendanceHandler) Perform(c *fiber.Ctx) error {
	// 1. Ambil Data User dari Middleware
	subjectID := middleware.UserID(c)

	action, err := attendance.ParseAction(c.Params("action"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Aksi tidak dikenal"})
	}

	var body ClockActionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Data tidak valid"})
		}
	}

	req := usecase.ClockRequest{
		SubjectID: subjectID,
		Action:    action,
		Device:    location.ReportedFix{Fix: body.Fix.position(h.now.Now())},
	}

	// 2. Jawaban prompt consent (jika ada)
	if ans := body.Consent; ans != nil {
		switch {
		case ans.Dismissed:
			req.PromptDismissed = true
		case ans.Granted != nil:
			rec, err := h.consent.Set(c.UserContext(), subjectID, *ans.Granted)
			if err != nil && !errors.Is(err, consent.ErrNotPersisted) {
				return h.writeError(c, attendance.Reject(attendance.KindRemoteFailure, err))
			}
			if err != nil {
				h.log.Warn("consent answer not persisted, using it for this action only", "subject", subjectID, "error", err)
			}
			req.Consent = &rec
		}
	}

	// 3. Jalankan aksi
	ev, err := h.clock.Perform(c.UserContext(), req)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Absensi berhasil dicatat",
		"data":    ev,
	})
}

func (h *AttendanceHandler) GetStatus(c *fiber.Ctx) error {
	s, err := h.clock.Status(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"data": s})
}

func (h *AttendanceHandler) GetConsent(c *fiber.Ctx) error {
	rec, ok, err := h.consent.Get(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.writeError(c, attendance.Reject(attendance.KindRemoteFailure, err))
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Persetujuan lokasi belum diberikan",
			"kind":  attendance.KindConsentRequired,
		})
	}
	return c.JSON(fiber.Map{"data": rec})
}

func (h *AttendanceHandler) PutConsent(c *fiber.Ctx) error {
	var scopes consent.Scopes
	if err := c.BodyParser(&scopes); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Data tidak valid"})
	}

	rec, err := h.consent.SetScopes(c.UserContext(), middleware.UserID(c), scopes)
	if errors.Is(err, consent.ErrNotPersisted) {
		h.log.Warn("consent not persisted", "subject", rec.SubjectID, "error", err)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message":   "Persetujuan belum tersimpan, silakan ulangi",
			"persisted": false,
			"data":      rec,
		})
	}
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Persetujuan disimpan", "persisted": true, "data": rec})
}

// CheckLocation previews the zone decision for a fix without recording
// anything.
func (h *AttendanceHandler) CheckLocation(c *fiber.Ctx) error {
	var fix FixRequest
	if err := c.BodyParser(&fix); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Data tidak valid"})
	}
	pos := fix.position(h.now.Now())
	if err := pos.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	d, err := h.clock.Preview(c.UserContext(), middleware.UserID(c), pos)
	if err != nil {
		return h.writeError(c, err)
	}

	resp := fiber.Map{"data": d}
	if m, ok := d.Nearest(); ok {
		resp["nearest"] = fiber.Map{"zone": m.Zone.Ref(), "distance_meters": m.DistanceMeters, "is_inside": m.IsInside}
	}
	return c.JSON(resp)
}

func (h *AttendanceHandler) GetHistory(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "30"))
	if err != nil || limit < 1 || limit > 200 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit harus antara 1 dan 200"})
	}
	rows, err := h.history.History(c.UserContext(), middleware.UserID(c), limit)
	if err != nil {
		h.log.Error("history query failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Gagal mengambil riwayat"})
	}
	return c.JSON(fiber.Map{"data": rows})
}

func (h *AttendanceHandler) writeError(c *fiber.Ctx, err error) error {
	rej, ok := attendance.AsRejection(err)
	if !ok {
		h.log.Error("unexpected error", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Terjadi kesalahan pada server"})
	}

	body := fiber.Map{"error": rej.Error(), "kind": rej.Kind}
	if len(rej.Zones) > 0 {
		body["zones"] = rej.Zones
	}
	if rej.Retryable() {
		body["retryable"] = true
	}
	switch {
	case rej.Kind == attendance.KindGeofenceViolation && errors.Is(rej.Err, attendance.ErrConsentDeclined):
		body["reason"] = attendance.KindConsentDeclined
	case rej.Kind == attendance.KindGeofenceViolation && errors.Is(rej.Err, attendance.ErrLocationUnavailable):
		body["reason"] = attendance.KindLocationUnavailable
	}
	return c.Status(rejectionStatus[rej.Kind]).JSON(body)
}

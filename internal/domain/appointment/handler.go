package appointment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/domain/doctor"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/:id/slots", h.ListBookableSlots)
	api.GET("/appointments/:id", h.GetAppointment)

	patients := api.Group("", auth.RequireRole("patient"))
	patients.POST("/appointments", h.BookAppointment)
	patients.GET("/appointments", h.ListMyAppointments)
	patients.POST("/appointments/:id/cancel", h.CancelAppointment)

	doctors := api.Group("/doctors/me", auth.RequireRole("doctor"))
	doctors.GET("/appointments", h.ListDoctorAppointments)
	doctors.POST("/appointments/:id/complete", h.CompleteAppointment)

	payments := api.Group("/payments", auth.RequireRole("admin"))
	payments.POST("/:id/confirm", h.ConfirmPayment)
	payments.POST("/:id/fail", h.FailPayment)
}

type bookingResponse struct {
	Appointment *Appointment `json:"appointment"`
	Payment     *Payment     `json:"payment,omitempty"`
}

func (h *Handler) ListBookableSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	today := time.Now().UTC()
	if from := c.QueryParam("from"); from != "" {
		today, err = time.ParseInLocation("2006-01-02", from, time.UTC)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
	}

	slots, err := h.svc.ListBookableSlots(c.Request().Context(), doctorID, today)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"slots": slots})
}

func (h *Handler) BookAppointment(c echo.Context) error {
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patientID := auth.UserIDFromContext(c.Request().Context())
	appt, payment, err := h.svc.Book(c.Request().Context(), patientID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, bookingResponse{Appointment: appt, Payment: payment})
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	appt, payment, err := h.svc.Get(ctx, auth.UserIDFromContext(ctx), auth.RoleFromContext(ctx), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, bookingResponse{Appointment: appt, Payment: payment})
}

func (h *Handler) ListMyAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	patientID := auth.UserIDFromContext(c.Request().Context())
	items, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	patientID := auth.UserIDFromContext(c.Request().Context())
	appt, err := h.svc.Cancel(c.Request().Context(), patientID, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListDoctorAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"status", "type", "from", "to"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	items, total, err := h.svc.ListForDoctor(c.Request().Context(), userID, params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	appt, err := h.svc.Complete(c.Request().Context(), userID, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ConfirmPayment(c echo.Context) error {
	return h.settlePayment(c, h.svc.ConfirmPayment)
}

func (h *Handler) FailPayment(c echo.Context) error {
	return h.settlePayment(c, h.svc.FailPayment)
}

func (h *Handler) settlePayment(c echo.Context, settle func(ctx context.Context, id uuid.UUID) (*Payment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	payment, err := settle(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, doctor.ErrDoctorNotFound),
		errors.Is(err, doctor.ErrWindowNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlotTaken),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrPaymentSettled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidBooking),
		errors.Is(err, doctor.ErrInvalidWeekday):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

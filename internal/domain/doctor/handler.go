package doctor

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	api.GET("/doctors", h.SearchDoctors)
	api.GET("/doctors/:id", h.GetDoctor)

	me := api.Group("/doctors/me", auth.RequireRole("doctor"))
	me.GET("/profile", h.GetMyProfile)
	me.PUT("/profile", h.UpdateMyProfile)
	me.PUT("/schedule", h.ReplaceSchedule)
}

type profileResponse struct {
	Doctor   *Doctor               `json:"doctor"`
	Schedule []*AvailabilityWindow `json:"schedule"`
}

func (h *Handler) SearchDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"specialty", "name", "location"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doc, windows, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profileResponse{Doctor: doc, Schedule: windows})
}

func (h *Handler) GetMyProfile(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	doc, windows, err := h.svc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profileResponse{Doctor: doc, Schedule: windows})
}

func (h *Handler) UpdateMyProfile(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	var upd ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doc, err := h.svc.UpdateProfile(c.Request().Context(), userID, upd)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

type replaceScheduleRequest struct {
	Windows []*AvailabilityWindow `json:"windows"`
}

func (h *Handler) ReplaceSchedule(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	var req replaceScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	windows, err := h.svc.ReplaceSchedule(c.Request().Context(), userID, req.Windows)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profileResponse{Schedule: windows})
}

// httpError maps domain errors to HTTP responses. Schedule validation
// failures carry the offending window indices in the response body.
func httpError(err error) error {
	var conflicts *ScheduleConflictError
	if errors.As(err, &conflicts) {
		pairs := make([][2]int, len(conflicts.Conflicts))
		for i, c := range conflicts.Conflicts {
			pairs[i] = [2]int{c.First, c.Second}
		}
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"error":   conflicts.Error(),
			"windows": pairs,
		})
	}
	var invalid *InvalidWindowError
	if errors.As(err, &invalid) {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"error":   invalid.Error(),
			"windows": []int{invalid.Index},
		})
	}

	switch {
	case errors.Is(err, ErrDoctorNotFound), errors.Is(err, ErrWindowNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrScheduleInvalid), errors.Is(err, ErrInvalidWeekday), errors.Is(err, ErrNegativeFee):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

package maternallab

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/auth"
	"github.com/Jmsandi/newmedtech1-sub002/pkg/pagination"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/maternal-lab")

	// Read endpoints: admin, physician, nurse, lab_technician
	readGroup := g.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleNurse, auth.RoleLabTechnician))
	readGroup.GET("/catalog", h.GetCatalog)
	readGroup.GET("/tests/:id", h.GetTest)
	readGroup.GET("/patients/:patientId/tests", h.ListPatientTests)
	readGroup.GET("/patients/:patientId/risk-profile", h.GetRiskProfile)
	readGroup.GET("/patients/:patientId/alerts", h.ListPatientAlerts)
	readGroup.GET("/alerts", h.ListAlerts)
	readGroup.GET("/alerts/:id", h.GetAlert)

	// Result entry: admin, physician, lab_technician
	writeGroup := g.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleLabTechnician))
	writeGroup.POST("/tests", h.SubmitTest)
	writeGroup.POST("/tests/preview", h.PreviewTest)
	writeGroup.PUT("/tests/:id/parameters", h.UpdateTestParameters)
	writeGroup.POST("/patients/:patientId/risk-profile/rebuild", h.RebuildRiskProfile)

	// Clinical review and alert handling: admin, physician, nurse
	clinicalGroup := g.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleNurse))
	clinicalGroup.POST("/tests/:id/review", h.ReviewTest)
	clinicalGroup.POST("/alerts/:id/acknowledge", h.AcknowledgeAlert)
	clinicalGroup.POST("/alerts/:id/resolve", h.ResolveAlert)
}

// httpError maps service errors onto HTTP status codes.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrUnknownCategory),
		errors.Is(err, ErrUnknownTest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidAlertTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) GetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Catalog())
}

// -- Lab Test Handlers --

func (h *Handler) SubmitTest(c echo.Context) error {
	var req SubmitTestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PerformedBy == "" {
		req.PerformedBy = auth.UserIDFromContext(c.Request().Context())
	}
	t, err := h.svc.SubmitTest(c.Request().Context(), &req)
	if err != nil {
		if t == nil {
			return httpError(err)
		}
		// The test is saved; the profile or alert step failed.
		h.logger.Error().Err(err).Str("lab_test_id", t.ID.String()).Msg("post-save processing failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "lab test saved but post-processing failed: "+err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) PreviewTest(c echo.Context) error {
	var req SubmitTestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.PreviewTest(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) GetTest(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	t, err := h.svc.GetTest(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) UpdateTestParameters(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateParametersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.UpdateTestParameters(c.Request().Context(), id, &req)
	if err != nil {
		if t == nil {
			return httpError(err)
		}
		h.logger.Error().Err(err).Str("lab_test_id", t.ID.String()).Msg("post-update processing failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "lab test updated but post-processing failed: "+err.Error())
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ReviewTest(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		ReviewedBy string `json:"reviewed_by"`
		Notes      string `json:"review_notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.ReviewedBy == "" {
		body.ReviewedBy = auth.UserIDFromContext(c.Request().Context())
	}
	t, err := h.svc.ReviewTest(c.Request().Context(), id, body.ReviewedBy, body.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListPatientTests(c echo.Context) error {
	patientID, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, err := h.svc.ListTestsByPatient(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pg))
}

// -- Risk Profile Handlers --

func (h *Handler) GetRiskProfile(c echo.Context) error {
	patientID, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	p, err := h.svc.GetProfile(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RebuildRiskProfile(c echo.Context) error {
	patientID, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	p, err := h.svc.RebuildProfile(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no lab tests recorded for patient")
	}
	return c.JSON(http.StatusOK, p)
}

// -- Alert Handlers --

func (h *Handler) ListPatientAlerts(c echo.Context) error {
	patientID, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, err := h.svc.ListAlertsByPatient(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pg))
}

func (h *Handler) ListAlerts(c echo.Context) error {
	status := AlertStatus(c.QueryParam("status"))
	if status == "" {
		status = AlertActive
	}
	pg := pagination.FromContext(c)
	items, err := h.svc.ListAlertsByStatus(c.Request().Context(), status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pg))
}

func (h *Handler) GetAlert(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.GetAlert(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) AcknowledgeAlert(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	by := auth.UserIDFromContext(c.Request().Context())
	a, err := h.svc.AcknowledgeAlert(c.Request().Context(), id, by)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ResolveAlert(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req ResolveAlertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	by := auth.UserIDFromContext(c.Request().Context())
	a, err := h.svc.ResolveAlert(c.Request().Context(), id, by, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

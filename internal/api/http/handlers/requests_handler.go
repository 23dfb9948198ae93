package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bonus-desk/internal/api/dto"
	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/service"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

// RequestsHandler serves the public intake endpoints. No authentication:
// submitters identify themselves by username and track by display id.
type RequestsHandler struct {
	submissions *service.SubmissionService
}

// NewRequestsHandler constructs the handler.
func NewRequestsHandler(submissions *service.SubmissionService) *RequestsHandler {
	return &RequestsHandler{submissions: submissions}
}

// Submit POST /requests.
func (h *RequestsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.BonusType == "" {
		return apperrors.NewValidationError("username and bonus_type required", nil)
	}

	created, err := h.submissions.Submit(c.Context(), service.SubmissionInput{
		Username:  req.Username,
		BonusType: req.BonusType,
		Note:      req.Note,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestSummary(created, 0)})
}

// Status GET /requests/:displayId.
func (h *RequestsHandler) Status(c *fiber.Ctx) error {
	displayID := normalizeDisplayID(c.Params("displayId"))
	view, err := h.submissions.StatusByDisplayID(c.Context(), displayID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(&view.Request, view.Position)})
}

// History GET /requests?username=...
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	username := c.Query("username")
	if username == "" {
		return apperrors.NewValidationError("username query parameter required", nil)
	}
	views, err := h.submissions.HistoryFor(c.Context(), username)
	if err != nil {
		return err
	}
	items := make([]dto.RequestSummary, 0, len(views))
	for i := range views {
		items = append(items, requestSummary(&views[i].Request, views[i].Position))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Acknowledge POST /requests/:displayId/ack marks the decision as seen.
func (h *RequestsHandler) Acknowledge(c *fiber.Ctx) error {
	displayID := normalizeDisplayID(c.Params("displayId"))
	if err := h.submissions.MarkNotified(c.Context(), displayID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// normalizeDisplayID restores the "#" that URL paths drop from tracking ids.
func normalizeDisplayID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.HasPrefix(raw, "#") {
		raw = "#" + raw
	}
	return raw
}

func requestSummary(req *domain.BonusRequest, position int) dto.RequestSummary {
	return dto.RequestSummary{
		ID:        req.DisplayID,
		Username:  req.Username,
		BonusType: req.BonusType,
		Label:     req.BonusTypeLabel,
		Note:      req.Note,
		AdminNote: req.AdminNote,
		Status:    string(req.Status),
		Position:  position,
		CreatedAt: req.CreatedAt,
		DecidedAt: req.ProcessedAt,
	}
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bonus-desk/internal/api/dto"
	"github.com/spec-kit/bonus-desk/internal/auth"
	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/repository"
	"github.com/spec-kit/bonus-desk/internal/service"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

// QueueHandler serves the admin work queue: the projected view plus the
// claim, release and decide operations, and the filtered history listing.
type QueueHandler struct {
	assignment  *service.AssignmentService
	projector   *service.QueueProjector
	submissions *service.SubmissionService
}

// NewQueueHandler constructs the handler.
func NewQueueHandler(assignment *service.AssignmentService, projector *service.QueueProjector, submissions *service.SubmissionService) *QueueHandler {
	return &QueueHandler{assignment: assignment, projector: projector, submissions: submissions}
}

// Queue GET /admin/queue returns the viewer's actionable pending requests.
func (h *QueueHandler) Queue(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	rows, err := h.projector.VisibleTo(c.Context(), admin)
	if err != nil {
		return err
	}
	items := make([]dto.QueueItem, 0, len(rows))
	for i := range rows {
		items = append(items, queueItem(&rows[i], admin.ID))
	}
	return c.JSON(fiber.Map{"data": items})
}

// List GET /admin/requests returns requests matching the query filters.
func (h *QueueHandler) List(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	filter := parseRequestQuery(c)
	rows, err := h.submissions.AdminSearch(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.QueueItem, 0, len(rows))
	for i := range rows {
		items = append(items, queueItem(&rows[i], admin.ID))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Claim POST /admin/requests/:id/claim.
func (h *QueueHandler) Claim(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	req, err := h.assignment.Claim(c.Context(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": queueItem(req, admin.ID)})
}

// Release POST /admin/requests/:id/release.
func (h *QueueHandler) Release(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	req, err := h.assignment.Release(c.Context(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": queueItem(req, admin.ID)})
}

// Approve POST /admin/requests/:id/approve.
func (h *QueueHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, domain.RequestStatusApproved)
}

// Reject POST /admin/requests/:id/reject.
func (h *QueueHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, domain.RequestStatusRejected)
}

func (h *QueueHandler) decide(c *fiber.Ctx, outcome domain.RequestStatus) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	var body dto.DecideRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	req, err := h.assignment.Decide(c.Context(), admin, c.Params("id"), outcome, body.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": queueItem(req, admin.ID)})
}

func parseRequestQuery(c *fiber.Ctx) repository.RequestFilter {
	filter := repository.RequestFilter{}
	if v := c.Query("username"); v != "" {
		filter.Username = &v
	}
	if v := c.Query("bonus_type"); v != "" {
		filter.BonusType = &v
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		switch status := domain.RequestStatus(strings.TrimSpace(raw)); status {
		case domain.RequestStatusPending, domain.RequestStatusApproved, domain.RequestStatusRejected:
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	filter.SinceDays, _ = strconv.Atoi(c.Query("days"))
	filter.Limit, _ = strconv.Atoi(c.Query("limit", "100"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))
	return filter
}

func requireAdmin(c *fiber.Ctx) (*domain.Admin, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Admin == nil {
		return nil, apperrors.NewUnauthorized(http.StatusText(http.StatusUnauthorized))
	}
	return principal.Admin, nil
}

func queueItem(req *domain.BonusRequest, viewerID string) dto.QueueItem {
	return dto.QueueItem{
		ID:         req.ID,
		DisplayID:  req.DisplayID,
		Username:   req.Username,
		BonusType:  req.BonusType,
		Label:      req.BonusTypeLabel,
		Note:       req.Note,
		Status:     string(req.Status),
		AssignedTo: req.AssignedTo,
		AssignedAt: req.AssignedAt,
		Mine:       req.HeldBy(viewerID),
		CreatedAt:  req.CreatedAt,
	}
}

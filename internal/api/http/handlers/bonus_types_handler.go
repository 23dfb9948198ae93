package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bonus-desk/internal/api/dto"
	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/service"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

// BonusTypesHandler serves the catalog, publicly for the form and with
// management verbs for admins.
type BonusTypesHandler struct {
	bonusTypes *service.BonusTypeService
}

// NewBonusTypesHandler constructs the handler.
func NewBonusTypesHandler(bonusTypes *service.BonusTypeService) *BonusTypesHandler {
	return &BonusTypesHandler{bonusTypes: bonusTypes}
}

// ListActive GET /bonus-types.
func (h *BonusTypesHandler) ListActive(c *fiber.Ctx) error {
	items, err := h.bonusTypes.ListActive(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bonusTypeResponses(items)})
}

// ListAll GET /admin/bonus-types.
func (h *BonusTypesHandler) ListAll(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	items, err := h.bonusTypes.ListAll(c.Context(), admin)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bonusTypeResponses(items)})
}

// Create POST /admin/bonus-types.
func (h *BonusTypesHandler) Create(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	var req dto.BonusTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, err := h.bonusTypes.Create(c.Context(), admin, bonusTypeInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": bonusTypeResponse(created)})
}

// Update PUT /admin/bonus-types/:name.
func (h *BonusTypesHandler) Update(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	var req dto.BonusTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.bonusTypes.Update(c.Context(), admin, c.Params("name"), bonusTypeInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bonusTypeResponse(updated)})
}

// Delete DELETE /admin/bonus-types/:name.
func (h *BonusTypesHandler) Delete(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	if err := h.bonusTypes.Delete(c.Context(), admin, c.Params("name")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func bonusTypeInput(req dto.BonusTypeRequest) service.BonusTypeInput {
	return service.BonusTypeInput{
		Name:        req.Name,
		Label:       req.Label,
		Icon:        req.Icon,
		Description: req.Description,
		IsActive:    req.IsActive,
		SortOrder:   req.SortOrder,
	}
}

func bonusTypeResponse(bt *domain.BonusType) dto.BonusTypeResponse {
	return dto.BonusTypeResponse{
		Name:        bt.Name,
		Label:       bt.Label,
		Icon:        bt.Icon,
		Description: bt.Description,
		IsActive:    bt.IsActive,
		SortOrder:   bt.SortOrder,
	}
}

func bonusTypeResponses(items []domain.BonusType) []dto.BonusTypeResponse {
	result := make([]dto.BonusTypeResponse, 0, len(items))
	for i := range items {
		result = append(result, bonusTypeResponse(&items[i]))
	}
	return result
}

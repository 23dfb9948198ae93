package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bonus-desk/internal/api/dto"
	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/service"
	apperrors "github.com/spec-kit/bonus-desk/pkg/util/errorutil"
)

// AdminsHandler covers sessions, presence and account management.
type AdminsHandler struct {
	authService *service.AuthService
	presence    *service.PresenceService
}

// NewAdminsHandler constructs the handler.
func NewAdminsHandler(authService *service.AuthService, presence *service.PresenceService) *AdminsHandler {
	return &AdminsHandler{authService: authService, presence: presence}
}

// Login POST /auth/login.
func (h *AdminsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	admin, token, exp, err := h.authService.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:            token,
		ExpiresAt:        exp,
		HeartbeatSeconds: h.authService.HeartbeatSeconds(),
		Admin:            adminProfile(admin),
	}})
}

// Logout POST /auth/logout.
func (h *AdminsHandler) Logout(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Context(), admin.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangePassword POST /auth/password/change.
func (h *AdminsHandler) ChangePassword(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.ChangePassword(c.Context(), admin.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// SetPresence PUT /admin/presence.
func (h *AdminsHandler) SetPresence(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	var req dto.PresenceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.presence.SetStatus(c.Context(), admin.ID, domain.PresenceStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminProfile(updated)})
}

// ForceOffline POST /admin/presence/offline. Fired by the dashboard on page
// unload; the client does not wait for the response.
func (h *AdminsHandler) ForceOffline(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	if _, err := h.presence.SetStatus(c.Context(), admin.ID, domain.PresenceOffline); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Heartbeat POST /admin/presence/heartbeat.
func (h *AdminsHandler) Heartbeat(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	if err := h.presence.Heartbeat(c.Context(), admin.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// OnlineAdmins GET /admin/presence.
func (h *AdminsHandler) OnlineAdmins(c *fiber.Ctx) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	admins, err := h.presence.ListOnline(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.AdminProfile, 0, len(admins))
	for i := range admins {
		items = append(items, adminProfile(&admins[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAdmins GET /admin/admins.
func (h *AdminsHandler) ListAdmins(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	admins, err := h.authService.ListAdmins(c.Context(), admin)
	if err != nil {
		return err
	}
	items := make([]dto.AdminProfile, 0, len(admins))
	for i := range admins {
		items = append(items, adminProfile(&admins[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateAdmin POST /admin/admins.
func (h *AdminsHandler) CreateAdmin(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	var req dto.CreateAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, err := h.authService.CreateAdmin(c.Context(), admin, req.Username, req.Password, domain.AdminRole(req.Role))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": adminProfile(created)})
}

// DeleteAdmin DELETE /admin/admins/:id.
func (h *AdminsHandler) DeleteAdmin(c *fiber.Ctx) error {
	admin, err := requireAdmin(c)
	if err != nil {
		return err
	}
	if err := h.authService.DeleteAdmin(c.Context(), admin, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func adminProfile(admin *domain.Admin) dto.AdminProfile {
	return dto.AdminProfile{
		ID:          admin.ID,
		Username:    admin.Username,
		Role:        string(admin.Role),
		Status:      string(admin.Status),
		LastSeen:    admin.LastSeen,
		IsProtected: admin.IsProtected,
		CreatedAt:   admin.CreatedAt,
	}
}

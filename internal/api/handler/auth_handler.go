package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/orgstack/tenant-auth/internal/api/metrics"
	"github.com/orgstack/tenant-auth/internal/core/domain"
	"github.com/orgstack/tenant-auth/internal/core/ports"
)

// AuditRecorder receives one event per auditable request. Implementations
// must not block.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}

type AuthHandler struct {
	sessions ports.SessionService
	audit    AuditRecorder
}

// NewAuthHandler creates an AuthHandler. audit may be nil.
func NewAuthHandler(sessions ports.SessionService, audit AuditRecorder) *AuthHandler {
	return &AuthHandler{sessions: sessions, audit: audit}
}

// Register creates a tenant admin account and returns a token pair.
//
// @Summary      Register a new user and organization
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User and tenant details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	start := time.Now()
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.sessions.Register(c.Request().Context(), ports.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		TenantName: req.TenantName,
		TenantSlug: req.TenantSlug,
	})
	h.observe("register", start, err)
	h.record(c, domain.AuthEvent{Action: domain.ActionRegister, Email: req.Email}, res, err)
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return c.JSON(http.StatusCreated, toAuthResponse(res))
}

// Login authenticates with email and password and returns a token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	start := time.Now()
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.sessions.Login(c.Request().Context(), req.Email, req.Password)
	h.observe("login", start, err)
	h.record(c, domain.AuthEvent{Action: domain.ActionLogin, Email: req.Email}, res, err)
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// Refresh exchanges a refresh token for a new access token.
//
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  refreshResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	start := time.Now()
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.sessions.RefreshAccessToken(c.Request().Context(), req.RefreshToken)
	h.observe("refresh", start, err)
	event := domain.AuthEvent{Action: domain.ActionRefresh}
	if res != nil {
		event.UserID = res.User.ID
		event.Email = res.User.Email
	}
	h.record(c, event, nil, err)
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()
	return c.JSON(http.StatusOK, refreshResponse{AccessToken: res.AccessToken})
}

// Me resolves the bearer token in the Authorization header to the current user.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserSummary
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	start := time.Now()
	user, err := h.sessions.GetProfile(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
	h.observe("profile", start, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile changes the signed-in user's display name.
//
// @Summary      Update profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Profile fields"
// @Success      200   {object}  domain.UserSummary
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/profile [patch]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	start := time.Now()
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.sessions.UpdateProfile(c.Request().Context(), userID, req.Name)
	h.observe("update_profile", start, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword rotates the signed-in user's password.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	start := time.Now()
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err = h.sessions.ChangePassword(c.Request().Context(), ports.ChangePasswordInput{
		UserID:          userID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	h.observe("change_password", start, err)
	email, _ := c.Get(CtxEmail).(string)
	h.record(c, domain.AuthEvent{Action: domain.ActionChangePassword, Email: email, UserID: userID}, nil, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password changed"})
}

func toAuthResponse(res *ports.AuthResult) authResponse {
	return authResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         res.User,
	}
}

func (h *AuthHandler) observe(operation string, start time.Time, err error) {
	metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	metrics.OperationsTotal.WithLabelValues(operation, ErrorCategory(err)).Inc()
}

func (h *AuthHandler) record(c echo.Context, event domain.AuthEvent, res *ports.AuthResult, err error) {
	if h.audit == nil {
		return
	}
	event.Success = err == nil
	event.Reason = ErrorCategory(err)
	if event.Success {
		event.Reason = ""
	}
	if res != nil {
		event.UserID = res.User.ID
		event.Email = res.User.Email
	}
	event.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	event.Timestamp = time.Now().UTC()
	h.audit.Record(event)
}

// ErrorCategory maps an error to the label used for metrics and audit
// records. It never reveals more than the error taxonomy does.
func ErrorCategory(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrCorruptCredential):
		return "corrupt_credential"
	default:
		return "internal"
	}
}

package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/billflow/billflow/internal/platform/httpx"
	"github.com/billflow/billflow/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	authenticator Authenticator
	validator     *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authenticator Authenticator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:        logger,
		service:       service,
		authenticator: authenticator,
		validator:     httpx.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/accounts", h.createAccount)
	r.Post("/sessions/password", h.authenticateWithPassword)
	r.Post("/password/recover", h.requestPasswordRecover)
	r.Post("/password/reset", h.resetPassword)
	r.Group(func(r chi.Router) {
		r.Use(h.authenticator.Middleware)
		r.Get("/profile", h.getProfile)
	})
}

type createAccountRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type recoverRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetRequest struct {
	Code     string `json:"code"`
	Token    string `json:"token"`
	Password string `json:"password" validate:"required,min=6"`
}

type profileResponse struct {
	User profileUser `json:"user"`
}

type profileUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.Register(r.Context(), RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(w, r, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"userId": id.String()})
}

func (h *Handler) authenticateWithPassword(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "authenticate with password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) requestPasswordRecover(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RequestPasswordRecovery(r.Context(), req.Email); err != nil {
		h.logger.ErrorContext(r.Context(), "request password recover", slog.Any("error", err))
	}
	httpx.NoContent(w, http.StatusCreated)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req) {
		return
	}
	code := req.Code
	if code == "" {
		code = req.Token
	}
	if err := h.service.ResetPassword(r.Context(), code, req.Password); err != nil {
		h.fail(w, r, "reset password", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, ErrInvalidAuthToken)
		return
	}
	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "get profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, profileResponse{User: profileUser{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
	}})
}

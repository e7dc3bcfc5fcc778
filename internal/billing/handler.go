package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/billflow/billflow/internal/platform/httpx"
	"github.com/billflow/billflow/internal/shared"
)

// Handler exposes billing endpoints. All of them require an authenticated user.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	authenticate func(http.Handler) http.Handler
	validator    *validator.Validate
}

// NewHandler builds a billing handler. authenticate must place the caller's
// user id in the request context.
func NewHandler(logger *slog.Logger, service *Service, authenticate func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		service:      service,
		authenticate: authenticate,
		validator:    httpx.NewValidator(),
	}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.authenticate != nil {
			r.Use(h.authenticate)
		}
		r.Post("/billing", h.create)
		r.Get("/billings", h.list)
		r.Get("/billings/{billingId}", h.get)
		r.Put("/billings/{billingId}", h.update)
		r.Delete("/billings/{billingId}", h.delete)
	})
}

type billingRequest struct {
	OwnerName   string  `json:"ownerName" validate:"required"`
	OwnerEmail  string  `json:"ownerEmail" validate:"required,email"`
	OwnerPhone  *string `json:"ownerPhone"`
	Date        string  `json:"date" validate:"required"`
	Value       string  `json:"value" validate:"required"`
	Observation *string `json:"observation"`
}

type updateBillingRequest struct {
	billingRequest
	Status string `json:"status" validate:"required,oneof=PENDING EXPIRED PAID"`
}

func (req billingRequest) draft() Draft {
	return Draft{
		OwnerName:   req.OwnerName,
		OwnerEmail:  req.OwnerEmail,
		OwnerPhone:  req.OwnerPhone,
		Date:        req.Date,
		Value:       req.Value,
		Observation: req.Observation,
	}
}

type billingResponse struct {
	ID          string  `json:"id"`
	OwnerName   string  `json:"ownerName"`
	OwnerEmail  string  `json:"ownerEmail"`
	OwnerPhone  *string `json:"ownerPhone"`
	Date        string  `json:"date"`
	Value       string  `json:"value"`
	Observation *string `json:"observation"`
	Status      Status  `json:"status"`
}

func toResponse(b Billing) billingResponse {
	return billingResponse{
		ID:          b.ID.String(),
		OwnerName:   b.OwnerName,
		OwnerEmail:  b.OwnerEmail,
		OwnerPhone:  b.OwnerPhone,
		Date:        b.Date.Format(DateLayout),
		Value:       b.Value.StringFixed(2),
		Observation: b.Observation,
		Status:      b.Status,
	}
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

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Invalid auth token.")
	}
	return userID, ok
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req billingRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.Create(r.Context(), userID, req.draft())
	if err != nil {
		h.fail(w, r, "create billing", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"billingId": id.String()})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	billings, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "list billings", err)
		return
	}
	out := make([]billingResponse, 0, len(billings))
	for _, b := range billings {
		out = append(out, toResponse(b))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"billings": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "billingId"))
	if err != nil {
		h.fail(w, r, "get billing", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"billing": toResponse(*b)})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req updateBillingRequest
	if !h.decode(w, r, &req) {
		return
	}
	draft := UpdateDraft{Draft: req.draft(), Status: Status(req.Status)}
	if err := h.service.Update(r.Context(), userID, chi.URLParam(r, "billingId"), draft); err != nil {
		h.fail(w, r, "update billing", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "billingId")); err != nil {
		h.fail(w, r, "delete billing", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

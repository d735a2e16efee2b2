package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gartstein/crm/internal/contacts/auth"
	e "github.com/gartstein/crm/internal/contacts/errors"
	"github.com/gartstein/crm/internal/contacts/matcher"
	"github.com/gartstein/crm/internal/contacts/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// SaveContactPath is the route of the save-contact function.
const SaveContactPath = "/functions/v1/save-contact"

// ContactController defines the contact operations the handlers invoke.
type ContactController interface {
	SaveContact(ctx context.Context, userID uuid.UUID, req *models.SaveContactRequest) (*models.SaveContactResult, error)
	GetContact(ctx context.Context, userID, id uuid.UUID) (*models.ContactView, error)
}

// DuplicateChecker defines the duplicate checks the handlers invoke.
type DuplicateChecker interface {
	CheckCompany(ctx context.Context, userID uuid.UUID, name, excludeID string) (matcher.Result, error)
	CheckPerson(ctx context.Context, userID uuid.UUID, firstName, lastName, excludeID string) (matcher.Result, error)
}

// ContactHandler serves the JSON routes of the service.
type ContactHandler struct {
	contacts       ContactController
	duplicates     DuplicateChecker
	logger         *zap.Logger
	detailedStatus bool
}

// HandlerOption customizes a ContactHandler.
type HandlerOption func(*ContactHandler)

// WithDetailedErrorStatus makes save-contact failures answer the status of
// their cause (400, 401, 404, 409, 502) instead of 500. The other routes
// always do.
func WithDetailedErrorStatus(enabled bool) HandlerOption {
	return func(h *ContactHandler) {
		h.detailedStatus = enabled
	}
}

// NewContactHandler constructs a new ContactHandler with the given services and logger.
func NewContactHandler(contacts ContactController, duplicates DuplicateChecker, logger *zap.Logger, opts ...HandlerOption) *ContactHandler {
	h := &ContactHandler{
		contacts:   contacts,
		duplicates: duplicates,
		logger:     logger.Named("http_handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AuthOptions returns the auth middleware options that keep token failures
// on the save-contact route within its error contract.
func (h *ContactHandler) AuthOptions() []auth.MiddlewareOption {
	if h.detailedStatus {
		return nil
	}
	return []auth.MiddlewareOption{auth.WithFailureStatus(http.StatusInternalServerError, SaveContactPath)}
}

type companyCheckRequest struct {
	Name      string `json:"name"`
	ExcludeID string `json:"exclude_id,omitempty"`
}

type personCheckRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ExcludeID string `json:"exclude_id,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Register adds the routes to the gateway mux.
func (h *ContactHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		path    string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, SaveContactPath, h.SaveContact},
		{http.MethodGet, "/v1/contacts/{id}", h.GetContact},
		{http.MethodPost, "/v1/duplicates/company", h.CheckCompany},
		{http.MethodPost, "/v1/duplicates/person", h.CheckPerson},
	}
	for _, route := range routes {
		if err := mux.HandlePath(route.method, route.path, route.handler); err != nil {
			return fmt.Errorf("%s %s: %w", route.method, route.path, err)
		}
	}
	return nil
}

// SaveContact persists a contact submission for the caller's organization.
// Every failure answers 500 with {error, details} unless detailed statuses
// are enabled.
func (h *ContactHandler) SaveContact(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.writeSaveError(w, errNoPrincipal)
		return
	}

	var req models.SaveContactRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeSaveError(w, err)
		return
	}

	res, err := h.contacts.SaveContact(r.Context(), principal.UserID, &req)
	if err != nil {
		h.writeSaveError(w, err)
		return
	}

	h.logger.Info("Contact saved",
		zap.String("contact_id", res.ContactID.String()),
		zap.Bool("created", res.Created),
	)
	writeJSON(w, http.StatusOK, res)
}

// GetContact returns a stored contact of the caller's organization.
func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request, params map[string]string) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(params["id"])
	if err != nil {
		h.writeServiceError(w, "Failed to get contact", fmt.Errorf("%w: invalid contact ID", e.ErrInvalidInput))
		return
	}

	view, err := h.contacts.GetContact(r.Context(), principal.UserID, id)
	if err != nil {
		h.writeServiceError(w, "Failed to get contact", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CheckCompany reports likely duplicates of a company name.
func (h *ContactHandler) CheckCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req companyCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, "Failed to check company", err)
		return
	}

	res, err := h.duplicates.CheckCompany(r.Context(), principal.UserID, req.Name, req.ExcludeID)
	if err != nil {
		h.writeServiceError(w, "Failed to check company", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CheckPerson reports likely duplicates of a person name.
func (h *ContactHandler) CheckPerson(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req personCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, "Failed to check person", err)
		return
	}

	res, err := h.duplicates.CheckPerson(r.Context(), principal.UserID, req.FirstName, req.LastName, req.ExcludeID)
	if err != nil {
		h.writeServiceError(w, "Failed to check person", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

var errNoPrincipal = fmt.Errorf("%w: no authenticated user", e.ErrUnauthorized)

// principal returns the caller stored by the auth middleware.
func (h *ContactHandler) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.writeServiceError(w, "Unauthorized", errNoPrincipal)
	}
	return p, ok
}

func (h *ContactHandler) writeSaveError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if h.detailedStatus {
		status = statusOf(err)
	}
	h.writeError(w, status, "Failed to save contact", err)
}

func (h *ContactHandler) writeServiceError(w http.ResponseWriter, fallback string, err error) {
	h.writeError(w, statusOf(err), fallback, err)
}

// writeError renders err as {error, details}. Step failures keep their
// message ("Contact update failed: ...") as the error text.
func (h *ContactHandler) writeError(w http.ResponseWriter, status int, fallback string, err error) {
	resp := ErrorResponse{Error: fallback, Details: err.Error()}
	var step *e.StepError
	switch {
	case errors.As(err, &step):
		resp = ErrorResponse{Error: step.Error(), Details: e.Cause(err).Error()}
	case errors.Is(err, e.ErrCompanyNotFound):
		resp = ErrorResponse{Error: e.ErrCompanyNotFound.Error(), Details: "no organization is owned by the authenticated user"}
	case errors.Is(err, e.ErrUnauthorized):
		resp.Error = "Unauthorized"
	}

	if statusOf(err) == http.StatusInternalServerError {
		h.logger.Error(fallback, zap.Error(err))
	}
	writeJSON(w, status, resp)
}

// statusOf maps service errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, e.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, e.ErrCompanyNotFound), errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, e.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", e.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed JSON: %v", e.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

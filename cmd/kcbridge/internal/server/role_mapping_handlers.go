package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/respond"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/services/mappings"
)

// maxMappingsBody caps the submitted mapping document.
const maxMappingsBody = 1 << 20

// MappingService defines the role-mapping operations used by the admin API.
type MappingService interface {
	ListRoles(ctx context.Context) (*mappings.RoleCatalog, error)
	GetMappings(ctx context.Context) (map[string]int64, error)
	SaveMappings(ctx context.Context, m map[string]int64) error
}

// RoleMappingHandlers wires the Keycloak role administration endpoints.
type RoleMappingHandlers struct {
	service MappingService
}

// NewRoleMappingHandlers creates the handler set.
func NewRoleMappingHandlers(service MappingService) *RoleMappingHandlers {
	return &RoleMappingHandlers{service: service}
}

type saveMappingsRequest struct {
	Mappings map[string]int64 `json:"mappings"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// GetRoles handles GET /keycloak-roles.
func (h *RoleMappingHandlers) GetRoles(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.ListRoles(r.Context())
	if err != nil {
		respond.Error(w, http.StatusBadRequest, msgFetchRoles)
		return
	}
	respond.JSON(w, http.StatusOK, catalog)
}

// GetRoleMappings handles GET /get-keycloak-role-mappings.
func (h *RoleMappingHandlers) GetRoleMappings(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetMappings(r.Context())
	if err != nil {
		respond.Error(w, http.StatusBadRequest, msgLoadMappings)
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

// SaveRoleMappings handles POST /save-keycloak-role-mappings.
// Rejected mappings carry the reason in error.details.reason.
func (h *RoleMappingHandlers) SaveRoleMappings(w http.ResponseWriter, r *http.Request) {
	var req saveMappingsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMappingsBody)).Decode(&req); err != nil {
		respond.ErrorWithDetails(w, http.StatusBadRequest, msgSaveMappings, map[string]any{
			"reason": "request body must be {\"mappings\": {\"<role>\": <localRoleId>}}",
		})
		return
	}

	if err := h.service.SaveMappings(r.Context(), req.Mappings); err != nil {
		var details map[string]any
		if mappings.IsValidation(err) {
			details = map[string]any{"reason": err.Error()}
		}
		respond.ErrorWithDetails(w, http.StatusBadRequest, msgSaveMappings, details)
		return
	}

	respond.JSON(w, http.StatusOK, messageResponse{Message: msgMappingsSaved})
}

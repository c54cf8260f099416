package customers

import (
	"net/http"
	"strings"

	"github.com/petalcrumb/pos-engine/internal/common"
)

// Handler exposes directory lookups to the terminals.
type Handler struct {
	directory Directory
}

// NewHandler constructs a Handler.
func NewHandler(directory Directory) *Handler {
	return &Handler{directory: directory}
}

// Lookup handles GET /customers?phone=.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if len(phone) < 4 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "phone requires at least 4 digits", nil)
		return
	}
	if h.directory == nil {
		common.JSON(w, http.StatusOK, map[string]any{"data": []Customer{}})
		return
	}
	records, err := h.directory.Lookup(r.Context(), phone)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "customer directory unavailable", nil)
		return
	}
	if records == nil {
		records = []Customer{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": records})
}

// Upsert handles POST /customers, recording a walk-in for next time.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var c Customer
	if err := common.Decode(r, &c); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" || c.Phone == "" {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "name and phone are required", map[string]any{"field": "name"})
		return
	}
	if h.directory == nil {
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "customer directory unavailable", nil)
		return
	}
	saved, err := h.directory.Upsert(r.Context(), c)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "customer directory unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": saved})
}

package paylink

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petalcrumb/pos-engine/internal/common"
)

// Handler verifies presented payment link tokens.
type Handler struct {
	Signer *Signer
}

// Verify handles GET /paylinks/{token}. The payment page calls it to learn
// what the link is worth before charging.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if h.Signer == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment links not configured", nil)
		return
	}
	claims, err := h.Signer.Verify(chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "payment link invalid or expired", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": claims})
}

package checkout

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/petalcrumb/pos-engine/internal/attachments"
	"github.com/petalcrumb/pos-engine/internal/common"
	"github.com/petalcrumb/pos-engine/internal/order"
)

const maxUploadBytes = 8 << 20

// Handler exposes the checkout flows over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewValidator builds the input validator with json field names in messages.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateSession handles POST /checkout/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	terminal, _ := common.Terminal(r.Context())
	view, err := h.Svc.Create(r.Context(), terminal)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// GetSession handles GET /checkout/sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// DismissSession handles DELETE /checkout/sessions/{sessionID}.
func (h *Handler) DismissSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Dismiss(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddLine handles POST /checkout/sessions/{sessionID}/lines.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var in LineInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.AddLine(r.Context(), chi.URLParam(r, "sessionID"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// UpdateLine handles PUT /checkout/sessions/{sessionID}/lines/{lineID}.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var in LineInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.UpdateLine(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "lineID"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveLine handles DELETE /checkout/sessions/{sessionID}/lines/{lineID}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.RemoveLine(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "lineID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AttachImage handles POST /checkout/sessions/{sessionID}/lines/{lineID}/attachments.
func (h *Handler) AttachImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart payload", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "file is required", nil)
		return
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "could not read file", nil)
		return
	}
	up := attachments.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	view, err := h.Svc.AttachImage(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "lineID"), up)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type customerInput struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// SetCustomer handles PUT /checkout/sessions/{sessionID}/customer.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var in customerInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.SetCustomer(r.Context(), chi.URLParam(r, "sessionID"), order.Customer{
		ID:    in.ID,
		Name:  in.Name,
		Phone: in.Phone,
		Email: in.Email,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SetFulfillment handles PUT /checkout/sessions/{sessionID}/fulfillment.
func (h *Handler) SetFulfillment(w http.ResponseWriter, r *http.Request) {
	var in order.Fulfillment
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.SetFulfillment(r.Context(), chi.URLParam(r, "sessionID"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SetGift handles PUT /checkout/sessions/{sessionID}/gift.
func (h *Handler) SetGift(w http.ResponseWriter, r *http.Request) {
	var in order.Gift
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.SetGift(r.Context(), chi.URLParam(r, "sessionID"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type notesInput struct {
	Notes string `json:"notes"`
}

// SetNotes handles PUT /checkout/sessions/{sessionID}/notes.
func (h *Handler) SetNotes(w http.ResponseWriter, r *http.Request) {
	var in notesInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.SetNotes(r.Context(), chi.URLParam(r, "sessionID"), in.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type couponInput struct {
	Code string `json:"code" validate:"required"`
}

// ApplyCoupon handles POST /checkout/sessions/{sessionID}/coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var in couponInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.ApplyCoupon(r.Context(), chi.URLParam(r, "sessionID"), in.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveCoupon handles DELETE /checkout/sessions/{sessionID}/coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.RemoveCoupon(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RecordPayment handles POST /checkout/sessions/{sessionID}/payments.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var in PaymentInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.RecordPayment(r.Context(), chi.URLParam(r, "sessionID"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemovePayment handles DELETE /checkout/sessions/{sessionID}/payments/{entryID}.
func (h *Handler) RemovePayment(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.RemovePayment(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "entryID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// CreatePaymentLink handles POST /checkout/sessions/{sessionID}/payment-link.
func (h *Handler) CreatePaymentLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.Svc.CreatePaymentLink(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": link})
}

type parkInput struct {
	Label string `json:"label,omitempty"`
}

// ParkSession handles POST /checkout/sessions/{sessionID}/park.
func (h *Handler) ParkSession(w http.ResponseWriter, r *http.Request) {
	var in parkInput
	if r.Body != nil && r.ContentLength != 0 {
		if err := h.decode(r, &in); err != nil {
			h.writeError(w, err)
			return
		}
	}
	ticket, err := h.Svc.Park(r.Context(), chi.URLParam(r, "sessionID"), in.Label)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": ticket})
}

// ListParked handles GET /checkout/parked.
func (h *Handler) ListParked(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Svc.ListParked(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": tickets})
}

// RecallParked handles POST /checkout/parked/{ticketID}/recall.
func (h *Handler) RecallParked(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Recall(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SubmitSession handles POST /checkout/sessions/{sessionID}/submit.
func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.Svc.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": receipt})
}

func (h *Handler) decode(r *http.Request, v any) error {
	if err := common.Decode(r, v); err != nil {
		return common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
	}
	if h.Validate == nil {
		return nil
	}
	if err := h.Validate.Struct(v); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			return common.ValidationError(ves[0].Field(), "invalid value for "+ves[0].Field(), err)
		}
		return common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

package coupon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/petalcrumb/pos-engine/internal/pricing"
)

// RemoteValidator asks the central coupon service to resolve a code. The
// service validates against the submitted subtotal, so a 200 response is
// authoritative.
type RemoteValidator struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type remoteRequest struct {
	Code     string        `json:"code"`
	Subtotal pricing.Money `json:"subtotal"`
}

type remoteError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Validate posts the code and subtotal to the coupon service.
func (v *RemoteValidator) Validate(ctx context.Context, code string, subtotal pricing.Money) (Coupon, error) {
	if v == nil || v.BaseURL == "" {
		return Coupon{}, errors.New("coupon service not configured")
	}
	payload, err := json.Marshal(remoteRequest{Code: strings.TrimSpace(code), Subtotal: subtotal})
	if err != nil {
		return Coupon{}, err
	}
	url := strings.TrimRight(v.BaseURL, "/") + "/coupons/validate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Coupon{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.APIKey)
	}
	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Coupon{}, fmt.Errorf("coupon service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var c Coupon
		if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
			return Coupon{}, fmt.Errorf("coupon service: decode: %w", err)
		}
		if c.Kind != pricing.DiscountPercentage && c.Kind != pricing.DiscountFixed {
			return Coupon{}, ErrKindInvalid
		}
		return c, nil
	case http.StatusNotFound:
		return Coupon{}, ErrNotFound
	case http.StatusUnprocessableEntity, http.StatusConflict:
		var re remoteError
		_ = json.NewDecoder(resp.Body).Decode(&re)
		switch re.Error.Code {
		case "EXPIRED":
			return Coupon{}, ErrExpired
		case "MIN_ORDER":
			return Coupon{}, ErrMinimumOrderUnmet
		default:
			return Coupon{}, ErrInactive
		}
	default:
		return Coupon{}, fmt.Errorf("coupon service: unexpected status %d", resp.StatusCode)
	}
}

// Package customers looks up repeat customers in the store directory service.
package customers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Customer is one directory record.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Directory finds and records repeat customers.
type Directory interface {
	Lookup(ctx context.Context, phone string) ([]Customer, error)
	Upsert(ctx context.Context, c Customer) (Customer, error)
}

// HTTPDirectory queries the directory service over HTTP.
type HTTPDirectory struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// Lookup implements Directory. The upstream matches on exact number or prefix.
func (d *HTTPDirectory) Lookup(ctx context.Context, phone string) ([]Customer, error) {
	if d == nil || d.BaseURL == "" {
		return nil, errors.New("customers: directory not configured")
	}
	endpoint := strings.TrimRight(d.BaseURL, "/") + "/customers?phone=" + url.QueryEscape(phone)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if d.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.APIKey)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("customers: directory returned status %d", resp.StatusCode)
	}

	var body struct {
		Data []Customer `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("customers: decode directory response: %w", err)
	}
	return body.Data, nil
}

// Upsert implements Directory. The upstream keys on phone number and returns
// the stored record with its id.
func (d *HTTPDirectory) Upsert(ctx context.Context, c Customer) (Customer, error) {
	if d == nil || d.BaseURL == "" {
		return Customer{}, errors.New("customers: directory not configured")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return Customer{}, fmt.Errorf("customers: encode record: %w", err)
	}
	endpoint := strings.TrimRight(d.BaseURL, "/") + "/customers"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Customer{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if d.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.APIKey)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Customer{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Customer{}, fmt.Errorf("customers: directory returned status %d", resp.StatusCode)
	}

	var body struct {
		Data Customer `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Customer{}, fmt.Errorf("customers: decode directory response: %w", err)
	}
	return body.Data, nil
}

// MockDirectory serves a fixed record set and is useful for development.
type MockDirectory struct {
	Records []Customer
}

// Lookup implements Directory.
func (m *MockDirectory) Lookup(_ context.Context, phone string) ([]Customer, error) {
	var out []Customer
	for _, c := range m.Records {
		if strings.HasPrefix(c.Phone, phone) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Upsert implements Directory, keyed on phone number.
func (m *MockDirectory) Upsert(_ context.Context, c Customer) (Customer, error) {
	for i, existing := range m.Records {
		if existing.Phone == c.Phone {
			if c.ID == "" {
				c.ID = existing.ID
			}
			m.Records[i] = c
			return c, nil
		}
	}
	if c.ID == "" {
		c.ID = fmt.Sprintf("mock-%d", len(m.Records)+1)
	}
	m.Records = append(m.Records, c)
	return c, nil
}

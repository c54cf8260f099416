// Package printer talks to the receipt printer sidecar at the counter.
package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/petalcrumb/pos-engine/internal/ledger"
	"github.com/petalcrumb/pos-engine/internal/pricing"
)

// Line is one printed receipt row.
type Line struct {
	Name      string        `json:"name"`
	Quantity  int           `json:"quantity"`
	UnitPrice pricing.Money `json:"unitPrice"`
	LineTotal pricing.Money `json:"lineTotal"`
	Details   []string      `json:"details,omitempty"`
}

// Job is one receipt to print.
type Job struct {
	OrderID      string          `json:"orderId"`
	OrderNumber  string          `json:"orderNumber"`
	Terminal     string          `json:"terminal,omitempty"`
	CustomerName string          `json:"customerName,omitempty"`
	Items        []Line          `json:"items"`
	Totals       pricing.Totals  `json:"totals"`
	Payments     []ledger.Record `json:"payments"`
	ChangeDue    pricing.Money   `json:"changeDue,omitempty"`
	BalanceDue   pricing.Money   `json:"balanceDue,omitempty"`
	GiftMessage  string          `json:"giftMessage,omitempty"`
	IssuedAt     time.Time       `json:"issuedAt"`
}

// Client sends print jobs to a printer.
type Client interface {
	Print(ctx context.Context, job Job) error
}

// HTTPClient posts jobs to the printer sidecar.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

// Print implements Client.
func (c *HTTPClient) Print(ctx context.Context, job Job) error {
	if c == nil || c.BaseURL == "" {
		return errors.New("printer: base url not configured")
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("printer: encode job: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+"/print", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("printer: sidecar returned status %d", resp.StatusCode)
	}
	return nil
}

// MockClient records jobs instead of printing, for tests and dry runs.
type MockClient struct {
	mu   sync.Mutex
	jobs []Job
	Err  error
}

// Print implements Client.
func (m *MockClient) Print(_ context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

// Jobs returns a copy of everything printed so far.
func (m *MockClient) Jobs() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, len(m.jobs))
	copy(out, m.jobs)
	return out
}

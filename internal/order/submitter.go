package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Submitter hands a finished submission to the store's order system.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (Receipt, error)
}

// HTTPSubmitter posts submissions to the central order service.
type HTTPSubmitter struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// Submit implements Submitter.
func (s *HTTPSubmitter) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	if s == nil || s.BaseURL == "" {
		return Receipt{}, errors.New("order: submitter base url not configured")
	}
	body, err := json.Marshal(sub)
	if err != nil {
		return Receipt{}, fmt.Errorf("order: encode submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.BaseURL, "/")+"/orders", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Receipt{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Receipt{}, fmt.Errorf("order: submit returned status %d", resp.StatusCode)
	}

	var out struct {
		Data Receipt `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Receipt{}, fmt.Errorf("order: decode submit response: %w", err)
	}
	if out.Data.OrderID == "" {
		return Receipt{}, errors.New("order: submit response missing order id")
	}
	if out.Data.SubmittedAt.IsZero() {
		out.Data.SubmittedAt = sub.SubmittedAt
	}
	return out.Data, nil
}

// LocalSubmitter accepts orders on the spot, for stores running without a
// central order service. Order numbers come from a per-day Redis sequence so
// they stay short enough to call out across the counter.
type LocalSubmitter struct {
	R      *redis.Client
	Prefix string
	Now    func() time.Time
}

func (s *LocalSubmitter) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *LocalSubmitter) prefix() string {
	if s == nil || s.Prefix == "" {
		return "PC"
	}
	return s.Prefix
}

// Submit implements Submitter.
func (s *LocalSubmitter) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	if s == nil || s.R == nil {
		return Receipt{}, errors.New("order: local submitter redis not configured")
	}
	now := s.now().UTC()
	day := now.Format("20060102")
	key := "pos:orderno:" + day
	seq, err := s.R.Incr(ctx, key).Result()
	if err != nil {
		return Receipt{}, fmt.Errorf("order: next order number: %w", err)
	}
	if seq == 1 {
		_ = s.R.Expire(ctx, key, 48*time.Hour).Err()
	}
	return Receipt{
		OrderID:     uuid.NewString(),
		OrderNumber: fmt.Sprintf("%s-%s-%04d", s.prefix(), day, seq),
		SubmittedAt: now,
	}, nil
}

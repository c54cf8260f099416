// Package park holds carts set aside mid-sale so the terminal can serve the
// next customer. Tickets expire on their own; an unclaimed cart just vanishes.
package park

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/petalcrumb/pos-engine/internal/pricing"
)

// ErrNotFound indicates the requested ticket expired or never existed.
var ErrNotFound = errors.New("park: ticket not found")

// Ticket summarises one parked cart for the recall screen.
type Ticket struct {
	ID       string        `json:"id"`
	Label    string        `json:"label,omitempty"`
	Customer string        `json:"customer,omitempty"`
	Terminal string        `json:"terminal,omitempty"`
	Lines    int           `json:"lines"`
	Total    pricing.Money `json:"total"`
	ParkedAt time.Time     `json:"parkedAt"`
}

// Store keeps parked carts in Redis. The snapshot payload is opaque here; the
// checkout owns its shape.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

const indexKey = "pos:park:index"

func ticketKey(id string) string   { return "pos:park:ticket:" + id }
func snapshotKey(id string) string { return "pos:park:snap:" + id }

// Park stores the ticket and snapshot under the configured TTL.
func (s *Store) Park(ctx context.Context, t Ticket, snapshot []byte) error {
	if s == nil || s.R == nil {
		return errors.New("park: redis client not configured")
	}
	if t.ID == "" {
		return errors.New("park: ticket id is required")
	}
	if len(snapshot) == 0 {
		return errors.New("park: snapshot is required")
	}
	meta, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("park: encode ticket: %w", err)
	}
	ttl := s.ttl()
	pipe := s.R.TxPipeline()
	pipe.Set(ctx, ticketKey(t.ID), meta, ttl)
	pipe.Set(ctx, snapshotKey(t.ID), snapshot, ttl)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(t.ParkedAt.UnixNano()), Member: t.ID})
	_, err = pipe.Exec(ctx)
	return err
}

// List returns live tickets oldest first. Expired entries are pruned from the
// index as they are discovered.
func (s *Store) List(ctx context.Context) ([]Ticket, error) {
	if s == nil || s.R == nil {
		return nil, errors.New("park: redis client not configured")
	}
	ids, err := s.R.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	tickets := make([]Ticket, 0, len(ids))
	for _, id := range ids {
		raw, err := s.R.Get(ctx, ticketKey(id)).Bytes()
		if err == redis.Nil {
			_ = s.R.ZRem(ctx, indexKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		var t Ticket
		if err := json.Unmarshal(raw, &t); err != nil {
			_ = s.R.ZRem(ctx, indexKey, id).Err()
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// Take removes the ticket and returns its snapshot. Recalling is destructive;
// two terminals cannot both resume the same cart.
func (s *Store) Take(ctx context.Context, id string) (Ticket, []byte, error) {
	if s == nil || s.R == nil {
		return Ticket{}, nil, errors.New("park: redis client not configured")
	}
	rawTicket, err := s.R.Get(ctx, ticketKey(id)).Bytes()
	if err == redis.Nil {
		return Ticket{}, nil, ErrNotFound
	}
	if err != nil {
		return Ticket{}, nil, err
	}
	snapshot, err := s.R.GetDel(ctx, snapshotKey(id)).Bytes()
	if err == redis.Nil {
		_ = s.R.Del(ctx, ticketKey(id)).Err()
		_ = s.R.ZRem(ctx, indexKey, id).Err()
		return Ticket{}, nil, ErrNotFound
	}
	if err != nil {
		return Ticket{}, nil, err
	}
	var t Ticket
	if err := json.Unmarshal(rawTicket, &t); err != nil {
		return Ticket{}, nil, fmt.Errorf("park: decode ticket: %w", err)
	}
	_ = s.R.Del(ctx, ticketKey(id)).Err()
	_ = s.R.ZRem(ctx, indexKey, id).Err()
	return t, snapshot, nil
}

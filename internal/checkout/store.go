package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates the session id is unknown or has expired.
var ErrSessionNotFound = errors.New("checkout session not found")

// SessionStore persists sessions in redis. Every write refreshes the TTL so
// an actively worked cart never expires mid-sale.
type SessionStore struct {
	R   *redis.Client
	TTL time.Duration
}

func (st *SessionStore) ttl() time.Duration {
	if st == nil || st.TTL <= 0 {
		return 12 * time.Hour
	}
	return st.TTL
}

func sessionKey(id string) string { return "pos:session:" + id }

// Save writes the session and refreshes its expiry.
func (st *SessionStore) Save(ctx context.Context, sess Session) error {
	if st == nil || st.R == nil {
		return errors.New("session store not configured")
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return st.R.Set(ctx, sessionKey(sess.ID), raw, st.ttl()).Err()
}

// Get loads a session by id.
func (st *SessionStore) Get(ctx context.Context, id string) (Session, error) {
	if st == nil || st.R == nil {
		return Session{}, errors.New("session store not configured")
	}
	raw, err := st.R.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (st *SessionStore) Delete(ctx context.Context, id string) error {
	if st == nil || st.R == nil {
		return errors.New("session store not configured")
	}
	return st.R.Del(ctx, sessionKey(id)).Err()
}

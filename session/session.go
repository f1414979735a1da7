// Package session provides lazy, cached query objects over the platform
// metadata APIs. A Session holds per-entity-type caches and an optional
// freeze point that makes repeated queries deterministic while the backend
// keeps changing underneath.
//
// A Session and its caches are single-threaded state: one analyst, one
// goroutine. Share the underlying runeq.Client across goroutines instead.
package session

import (
	"context"
	"time"

	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/resources"
)

// Option adjusts session construction.
type Option func(*Session)

// WithoutCaching disables the session caches: every iteration streams raw
// pages from the backend.
func WithoutCaching() Option {
	return func(s *Session) { s.caching = false }
}

// Session composes query objects with shared cache and freeze-time policy.
type Session struct {
	client  *runeq.Client
	caching bool

	frozen   bool
	frozenAt time.Time

	patients     *resources.Set
	deviceCaches map[ident.ID]*resources.Set

	me *resources.Entity
}

// New builds a session on the given client; nil falls back to the process
// default installed by runeq.Initialize. Caching is on by default.
func New(client *runeq.Client, opts ...Option) (*Session, error) {
	if client == nil {
		var err error
		client, err = runeq.Default()
		if err != nil {
			return nil, err
		}
	}
	s := &Session{
		client:       client,
		caching:      true,
		patients:     resources.NewSet(resources.TypePatient),
		deviceCaches: map[ident.ID]*resources.Set{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Client returns the underlying API client.
func (s *Session) Client() *runeq.Client { return s.client }

// FreezeTime sets the freeze point: iteration excludes entities created at
// or after it. The zero time means now. Freezing does not invalidate caches;
// it only filters the view.
func (s *Session) FreezeTime(at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	s.frozen = true
	s.frozenAt = at
}

// UnfreezeTime clears the freeze point and resets the entity caches to
// empty and incomplete. Entities may have appeared while frozen, so a
// cached full enumeration can no longer be trusted.
func (s *Session) UnfreezeTime() {
	s.frozen = false
	s.frozenAt = time.Time{}
	s.patients = resources.NewSet(resources.TypePatient)
	s.deviceCaches = map[ident.ID]*resources.Set{}
}

// Frozen returns the freeze point, if one is set.
func (s *Session) Frozen() (time.Time, bool) {
	return s.frozenAt, s.frozen
}

// visible applies the freeze-time filter to one entity.
func (s *Session) visible(e *resources.Entity) bool {
	if !s.frozen {
		return true
	}
	ts, ok := e.CreatedAt()
	if !ok {
		return true
	}
	return ts < float64(s.frozenAt.UnixNano())/float64(time.Second)
}

// Me resolves the identity behind the session's credentials with a single
// whoami call, cached for the session's lifetime. The entity is
// patient-flavored or user-flavored depending on which key the backend
// returned.
func (s *Session) Me(ctx context.Context) (*resources.Entity, error) {
	if s.me != nil {
		return s.me, nil
	}

	asPatient := s.client.Config().AuthMethod == runeq.AuthMethodClientKeys
	result, err := resources.WhoamiRecord(ctx, s.client.Graph(), asPatient)
	if err != nil {
		return nil, err
	}

	var me *resources.Entity
	switch {
	case result["patient"] != nil:
		raw, ok := result["patient"].(map[string]any)
		if !ok {
			return nil, runeq.Usagef("malformed whoami response")
		}
		me, err = resources.NewEntity(resources.TypePatient, raw)
	case result["user"] != nil:
		raw, ok := result["user"].(map[string]any)
		if !ok {
			return nil, runeq.Usagef("malformed whoami response")
		}
		me, err = resources.NewEntity(resources.TypeUser, raw)
	default:
		return nil, runeq.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.me = me
	return me, nil
}

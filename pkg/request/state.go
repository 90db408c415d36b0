// Package request holds the mutable state isolated to one logical request:
// an opaque key/value bucket, the resources collected while preparing widgets,
// the last validated instance and the message overrides in effect.
package request

import (
	"context"
	"sync"

	"github.com/goliatone/go-formwidget/pkg/resources"
	"github.com/goliatone/go-formwidget/pkg/validation"
)

// State is the bucket of one logical request. It is safe for concurrent use
// so handlers may fan out, but it must never be shared across requests.
type State struct {
	mu        sync.Mutex
	values    map[string]any
	resources []resources.Resource
	seen      map[string]struct{}
	validated any
	messages  *validation.Messages
}

// Option configures a State.
type Option func(*State)

// WithMessages installs the validation message overrides for the request.
func WithMessages(m *validation.Messages) Option {
	return func(s *State) {
		s.messages = m
	}
}

// NewState returns an empty bucket.
func NewState(opts ...Option) *State {
	s := &State{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *State) Set(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[key] = value
}

// Delete removes key.
func (s *State) Delete(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Clear wipes everything the request accumulated. Message overrides are
// configuration and survive.
func (s *State) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = nil
	s.resources = nil
	s.seen = nil
	s.validated = nil
}

// AddResource records res for injection, ignoring duplicates.
func (s *State) AddResource(res resources.Resource) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := res.Key()
	if _, ok := s.seen[key]; ok {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	s.seen[key] = struct{}{}
	s.resources = append(s.resources, res)
}

// Resources lists the recorded resources in registration order.
func (s *State) Resources() []resources.Resource {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]resources.Resource(nil), s.resources...)
}

// SetValidated retains the instance tree of the last validate pass so it can
// be redisplayed with values and errors.
func (s *State) SetValidated(instance any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validated = instance
}

// Validated returns the retained instance tree.
func (s *State) Validated() any {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validated
}

// Messages returns the message overrides configured for the request.
func (s *State) Messages() *validation.Messages {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages
}

type stateKey struct{}

// NewContext attaches s to ctx.
func NewContext(ctx context.Context, s *State) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, stateKey{}, s)
}

// FromContext returns the state attached to ctx.
func FromContext(ctx context.Context) (*State, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(stateKey{}).(*State)
	return s, ok && s != nil
}

// Ensure returns the state attached to ctx, attaching a fresh one when none
// exists.
func Ensure(ctx context.Context) (context.Context, *State) {
	if s, ok := FromContext(ctx); ok {
		return ctx, s
	}
	s := NewState()
	return NewContext(ctx, s), s
}

// Package synchronizer pushes route tables to Mountebank. Mountebank has no
// update operation, so a change is applied by deleting the imposter and
// creating it again from the current table.
package synchronizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"mb-route-sync/models"
	"mb-route-sync/routes"
	"mb-route-sync/wire"

	"github.com/google/uuid"
)

// ImposterAPI is the part of the Mountebank admin API the Synchronizer
// needs. *mountebank.Client implements it.
type ImposterAPI interface {
	CreateImposter(ctx context.Context, imposter *models.Imposter) ([]byte, error)
	DeleteImposter(ctx context.Context, port int) ([]byte, error)
}

// EventPublisher receives one event per successful push.
type EventPublisher interface {
	Publish(ctx context.Context, event models.SyncEvent) error
}

// StateObserver is told about every Replace state transition.
type StateObserver func(d routes.Descriptor, from, to State)

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithCallTimeout bounds each remote call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Synchronizer) { s.callTimeout = d }
}

// WithPublisher publishes a SyncEvent after every successful push.
func WithPublisher(p EventPublisher) Option {
	return func(s *Synchronizer) { s.publisher = p }
}

// WithStateObserver registers fn for Replace state transitions.
func WithStateObserver(fn StateObserver) Option {
	return func(s *Synchronizer) { s.observe = fn }
}

// Synchronizer owns all network interaction for imposters. Pushes for the
// same port are serialized.
type Synchronizer struct {
	api         ImposterAPI
	callTimeout time.Duration
	publisher   EventPublisher
	observe     StateObserver

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// New returns a Synchronizer that talks to api.
func New(api ImposterAPI, opts ...Option) *Synchronizer {
	s := &Synchronizer{api: api, locks: make(map[int]*sync.Mutex)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) lock(port int) func() {
	s.mu.Lock()
	l, ok := s.locks[port]
	if !ok {
		l = &sync.Mutex{}
		s.locks[port] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Synchronizer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

// Create translates the table and posts it once. It returns Mountebank's
// raw response body.
func (s *Synchronizer) Create(ctx context.Context, table *routes.Table, d routes.Descriptor) ([]byte, error) {
	unlock := s.lock(d.Port)
	defer unlock()

	start := time.Now()
	payload := wire.ToRemotePayload(table, d)
	body, err := s.create(ctx, &payload)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.SyncCreate, d, len(payload.Stubs), uuid.NewString(), time.Since(start))
	return body, nil
}

func (s *Synchronizer) create(ctx context.Context, payload *models.Imposter) ([]byte, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	body, err := s.api.CreateImposter(callCtx, payload)
	if err != nil {
		return nil, newRemoteError("create", payload.Port, err)
	}
	return body, nil
}

// Replace pushes the current table over an existing imposter: delete, check
// that something was actually deleted, then create. Create is never
// attempted unless the delete is confirmed. Once started the sequence is
// not cancelled by ctx; each call is still bounded by the call timeout.
func (s *Synchronizer) Replace(ctx context.Context, table *routes.Table, d routes.Descriptor) ([]byte, error) {
	unlock := s.lock(d.Port)
	defer unlock()

	run := &replaceRun{
		s:     s,
		ctx:   context.WithoutCancel(ctx),
		table: table,
		d:     d,
		id:    uuid.NewString(),
		start: time.Now(),
		state: Idle,
	}
	run.advance(Deleting)
	for !run.state.Terminal() {
		run.step()
	}
	return run.result, run.err
}

// replaceRun is the state of a single Replace invocation.
type replaceRun struct {
	s     *Synchronizer
	ctx   context.Context
	table *routes.Table
	d     routes.Descriptor
	id    string
	start time.Time

	state  State
	result []byte
	err    error
}

func (r *replaceRun) advance(to State) {
	if !CanTransition(r.state, to) {
		panic(fmt.Sprintf("synchronizer: illegal transition %s -> %s", r.state, to))
	}
	log.Printf("DEBUG: [%s] replace imposter on port %d: %s -> %s", r.id, r.d.Port, r.state, to)
	from := r.state
	r.state = to
	if r.s.observe != nil {
		r.s.observe(r.d, from, to)
	}
}

func (r *replaceRun) step() {
	switch r.state {
	case Deleting:
		callCtx, cancel := r.s.callContext(r.ctx)
		body, err := r.s.api.DeleteImposter(callCtx, r.d.Port)
		cancel()
		switch {
		case err != nil:
			r.err = newRemoteError("delete", r.d.Port, err)
			r.advance(DeleteFailed)
		case isEmptyObject(body):
			r.err = &StaleDeleteError{Port: r.d.Port, Body: string(body)}
			r.advance(DeleteConfirmedEmpty)
		default:
			r.advance(DeleteConfirmedNonEmpty)
		}

	case DeleteConfirmedNonEmpty:
		r.advance(Creating)

	case Creating:
		// Translate here, not before the delete: the newest table wins.
		payload := wire.ToRemotePayload(r.table, r.d)
		body, err := r.s.create(r.ctx, &payload)
		if err != nil {
			r.err = err
			r.advance(CreateFailed)
			return
		}
		r.result = body
		r.advance(Done)
		r.s.publish(r.ctx, models.SyncReplace, r.d, len(payload.Stubs), r.id, time.Since(r.start))

	default:
		panic(fmt.Sprintf("synchronizer: no step defined for state %s", r.state))
	}
}

// isEmptyObject reports whether a delete response describes nothing. A
// blank body counts as empty.
func isEmptyObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return false
	}
	return obj != nil && len(obj) == 0
}

func (s *Synchronizer) publish(ctx context.Context, op models.SyncOperation, d routes.Descriptor, stubs int, id string, took time.Duration) {
	if s.publisher == nil {
		return
	}
	event := models.SyncEvent{
		ID:         id,
		Operation:  op,
		Port:       d.Port,
		Protocol:   d.Protocol,
		StubCount:  stubs,
		DurationMs: took.Milliseconds(),
		At:         time.Now().UTC(),
	}
	callCtx, cancel := s.callContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.publisher.Publish(callCtx, event); err != nil {
		log.Printf("ERROR: Failed to publish %s event for port %d: %v", op, d.Port, err)
	}
}

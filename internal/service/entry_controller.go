package service

import (
	"bytes"
	"context"
	"sync"

	"github.com/guttosm/pixie-cache/internal/domain/model"
)

// EntryController drives one lookup, fetch and populate sequence for a key.
// State moves idle -> loading -> loaded|failed, or idle -> loaded on a hit.
// A controller is single use; create a new one to retry.
type EntryController struct {
	coord *Coordinator
	url   string
	key   string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	state       model.FetchState
	data        []byte
	err         error
	fromCache   bool
	transitions []model.FetchState
	observer    func(model.FetchState)
}

// ControllerOption configures an EntryController.
type ControllerOption func(*EntryController)

// WithObserver registers fn to be called with the new state on every transition.
// fn runs on the goroutine performing the transition and must not block.
func WithObserver(fn func(model.FetchState)) ControllerOption {
	return func(ec *EntryController) {
		ec.observer = fn
	}
}

func newEntryController(ctx context.Context, coord *Coordinator, url, key string, opts ...ControllerOption) *EntryController {
	cctx, cancel := context.WithCancel(ctx)
	ec := &EntryController{
		coord:       coord,
		url:         url,
		key:         key,
		ctx:         cctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		state:       model.StateIdle,
		transitions: []model.FetchState{model.StateIdle},
	}
	for _, opt := range opts {
		opt(ec)
	}

	if data, ok := coord.Lookup(key); ok {
		ec.mu.Lock()
		ec.fromCache = true
		ec.mu.Unlock()
		ec.finish(model.StateLoaded, data, nil)
		return ec
	}

	ec.transition(model.StateLoading)
	go ec.run()
	return ec
}

func (ec *EntryController) run() {
	data, err := ec.coord.fetchAndPopulate(ec.ctx, ec.url, ec.key)
	if err != nil {
		ec.finish(model.StateFailed, nil, err)
		return
	}
	ec.finish(model.StateLoaded, data, nil)
}

func (ec *EntryController) transition(state model.FetchState) {
	ec.mu.Lock()
	ec.state = state
	ec.transitions = append(ec.transitions, state)
	observer := ec.observer
	ec.mu.Unlock()

	if observer != nil {
		observer(state)
	}
}

func (ec *EntryController) finish(state model.FetchState, data []byte, err error) {
	ec.mu.Lock()
	ec.data = data
	ec.err = err
	ec.mu.Unlock()

	ec.transition(state)
	ec.cancel()
	close(ec.done)
}

// Key returns the cache key.
func (ec *EntryController) Key() string {
	return ec.key
}

// URL returns the origin URL.
func (ec *EntryController) URL() string {
	return ec.url
}

// State returns the current state.
func (ec *EntryController) State() model.FetchState {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.state
}

// IsLoading reports whether a fetch is in progress.
func (ec *EntryController) IsLoading() bool {
	return ec.State() == model.StateLoading
}

// Bytes returns a copy of the image bytes once loaded, or nil.
func (ec *EntryController) Bytes() []byte {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return bytes.Clone(ec.data)
}

// Err returns the failure cause once failed, or nil.
func (ec *EntryController) Err() error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.err
}

// FromCache reports whether the bytes came from a cache tier rather than the origin.
func (ec *EntryController) FromCache() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.fromCache
}

// Transitions returns every state the controller has been in, starting with idle.
func (ec *EntryController) Transitions() []model.FetchState {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make([]model.FetchState, len(ec.transitions))
	copy(out, ec.transitions)
	return out
}

// Done is closed once the controller reaches a terminal state.
func (ec *EntryController) Done() <-chan struct{} {
	return ec.done
}

// Wait blocks until the controller is terminal or ctx is done.
// Giving up on the wait does not cancel the controller.
func (ec *EntryController) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-ec.done:
		return ec.Bytes(), ec.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close cancels a pending fetch. The controller then fails with the
// cancellation error. Closing a terminal controller is a no-op.
func (ec *EntryController) Close() {
	ec.cancel()
}

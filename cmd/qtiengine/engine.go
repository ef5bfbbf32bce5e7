package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/mind-engage/qti-testengine/internal/config"
	"github.com/mind-engage/qti-testengine/internal/snapshot"
	"github.com/mind-engage/qti-testengine/internal/store"
	"github.com/mind-engage/qti-testengine/internal/testdriver"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
	"github.com/mind-engage/qti-testengine/pkg/route"
)

// Engine wires the demo AssessmentTest catalog, the snapshot persistence
// backend, and an in-process cache of active TestSessions for the HTTP
// handlers. It is the engine-specific counterpart of the teacher's
// handlers.Handler, which plays the same role around a map[uuid.UUID]Item.
type Engine struct {
	cfg     config.Config
	backend store.Backend

	tests   map[string]*qtimodel.AssessmentTest
	seekers map[string]*snapshot.Seeker

	mu     sync.Mutex
	active map[string]*testdriver.TestSession
	testOf map[string]string // sessionID -> test identifier
}

// NewEngine builds an Engine over the demo test catalog.
func NewEngine(cfg config.Config, backend store.Backend) *Engine {
	e := &Engine{
		cfg:     cfg,
		backend: backend,
		tests:   make(map[string]*qtimodel.AssessmentTest),
		seekers: make(map[string]*snapshot.Seeker),
		active:  make(map[string]*testdriver.TestSession),
		testOf:  make(map[string]string),
	}
	for _, t := range demoTests() {
		e.tests[t.Identifier] = t
		e.seekers[t.Identifier] = snapshot.NewSeeker(t)
	}
	return e
}

func (e *Engine) lookupTest(testID string) (*qtimodel.AssessmentTest, *snapshot.Seeker, bool) {
	t, ok := e.tests[testID]
	if !ok {
		return nil, nil, false
	}
	return t, e.seekers[testID], true
}

// BeginSession materializes a Route over testID's AssessmentTest, starts a
// fresh TestSession, persists its first snapshot, and registers it as
// active.
func (e *Engine) BeginSession(ctx context.Context, testID string) (*testdriver.TestSession, error) {
	test, _, ok := e.lookupTest(testID)
	if !ok {
		return nil, fmt.Errorf("qtiengine: unknown test %q", testID)
	}
	rt := route.Build(test)
	ts := testdriver.New(test, rt, nil, nil, e.cfg.DriverConfig)
	ts.ResultsPolicy = e.cfg.ResultsPolicy
	if err := ts.BeginTestSession(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.active[ts.SessionID] = ts
	e.testOf[ts.SessionID] = testID
	e.mu.Unlock()

	if err := e.persist(ctx, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// Get returns the TestSession for sessionID, serving the in-process cache
// first and falling back to decoding its last persisted snapshot (the path
// exercised when a process restart drops the cache, per core.v1 §4.9's
// round-trip contract). The test identifier a decoded session belongs to
// must still be known to this process; a full deployment would persist
// that alongside the snapshot bytes rather than keep it in memory only.
func (e *Engine) Get(ctx context.Context, sessionID string) (*testdriver.TestSession, error) {
	e.mu.Lock()
	ts, ok := e.active[sessionID]
	testID := e.testOf[sessionID]
	e.mu.Unlock()
	if ok {
		return ts, nil
	}
	if testID == "" {
		return nil, fmt.Errorf("qtiengine: unknown session %q", sessionID)
	}

	data, found, err := e.backend.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("qtiengine: no snapshot for session %q", sessionID)
	}
	test, seeker, ok := e.lookupTest(testID)
	if !ok {
		return nil, fmt.Errorf("qtiengine: unknown test %q for session %q", testID, sessionID)
	}
	ts, err = snapshot.Decode(data, test, seeker, e.cfg.DriverConfig, nil, nil, e.cfg.ResultsPolicy)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.active[sessionID] = ts
	e.mu.Unlock()
	return ts, nil
}

// Persist re-encodes ts and saves it, the step every mutating handler takes
// after a successful TestSession operation.
func (e *Engine) Persist(ctx context.Context, ts *testdriver.TestSession) error {
	return e.persist(ctx, ts)
}

func (e *Engine) persist(ctx context.Context, ts *testdriver.TestSession) error {
	e.mu.Lock()
	testID := e.testOf[ts.SessionID]
	e.mu.Unlock()
	_, seeker, ok := e.lookupTest(testID)
	if !ok {
		return fmt.Errorf("qtiengine: unknown test %q for session %q", testID, ts.SessionID)
	}
	data, err := snapshot.Encode(ts, seeker)
	if err != nil {
		return err
	}
	log.Printf("qtiengine: session %s snapshot %s", ts.SessionID, humanize.Bytes(uint64(len(data))))
	return e.backend.SaveSnapshot(ctx, ts.SessionID, data)
}

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"formcheck/internal/address/adapters/viacep"
	"formcheck/internal/engine"
	"formcheck/internal/form"
	"formcheck/internal/presentation"
	"formcheck/pkg/requestcontext"
)

// TestContext holds one scenario's session and the fake address service
// behind it.
type TestContext struct {
	server   *httptest.Server
	loop     *engine.Loop
	session  *engine.Session
	recorder *presentation.Recorder
	stop     context.CancelFunc
	now      time.Time

	mu      sync.Mutex
	known   map[string]map[string]string
	gates   map[string]chan struct{}
	outages map[string]bool
}

// NewTestContext starts a session wired to a fresh fake service.
func NewTestContext() (*TestContext, error) {
	tc := &TestContext{
		known:   make(map[string]map[string]string),
		gates:   make(map[string]chan struct{}),
		outages: make(map[string]bool),
		now:     time.Now(),
	}
	tc.server = httptest.NewServer(http.HandlerFunc(tc.serveAddress))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tc.loop = engine.NewLoop(nil)
	tc.recorder = presentation.NewRecorder()

	var runCtx context.Context
	runCtx, tc.stop = context.WithCancel(context.Background())
	go func() { _ = tc.loop.Run(runCtx) }()

	session, err := engine.NewSession(engine.SessionConfig{
		Loop:   tc.loop,
		Lookup: viacep.New(tc.server.URL, 2*time.Second, viacep.WithLogger(logger)),
		Sink:   tc.recorder,
		Logger: logger,
	})
	if err != nil {
		tc.Close()
		return nil, err
	}
	tc.session = session
	return tc, nil
}

// Close stops the loop and the fake service.
func (tc *TestContext) Close() {
	tc.mu.Lock()
	for code, gate := range tc.gates {
		close(gate)
		delete(tc.gates, code)
	}
	tc.mu.Unlock()
	tc.stop()
	tc.server.Close()
}

func (tc *TestContext) serveAddress(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/ws/"), "/json/")

	tc.mu.Lock()
	gate := tc.gates[code]
	record, found := tc.known[code]
	outage := tc.outages[code]
	tc.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if outage {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if !found {
		_, _ = io.WriteString(w, `{"erro": "true"}`)
		return
	}
	_ = json.NewEncoder(w).Encode(record)
}

func digits(code string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, code)
}

func (tc *TestContext) KnowAddress(code, street, city, region string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.known[digits(code)] = map[string]string{
		"cep":        code,
		"logradouro": street,
		"localidade": city,
		"uf":         region,
	}
}

func (tc *TestContext) FailLookups(code string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.outages[digits(code)] = true
}

func (tc *TestContext) HoldAnswer(code string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.gates[digits(code)] = make(chan struct{})
}

func (tc *TestContext) ReleaseAnswer(code string) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	gate, ok := tc.gates[digits(code)]
	if !ok {
		return fmt.Errorf("no answer held for %s", code)
	}
	close(gate)
	delete(tc.gates, digits(code))
	return nil
}

func (tc *TestContext) SetToday(day time.Time) {
	tc.now = day
}

func (tc *TestContext) Edit(ctx context.Context, t form.FieldType, value string) (form.Outcome, error) {
	return tc.session.Edit(requestcontext.WithTime(ctx, tc.now), t, value)
}

func (tc *TestContext) Submit(ctx context.Context) ([]form.Outcome, error) {
	return tc.session.Submit(requestcontext.WithTime(ctx, tc.now))
}

func (tc *TestContext) Settle(ctx context.Context) error {
	return tc.session.Settle(ctx)
}

func (tc *TestContext) Field(ctx context.Context, t form.FieldType) (form.Field, error) {
	fields, err := tc.session.Snapshot(ctx)
	if err != nil {
		return form.Field{}, err
	}
	for _, f := range fields {
		if f.Type == t {
			return f, nil
		}
	}
	return form.Field{}, fmt.Errorf("no %s field", t)
}

func (tc *TestContext) LastReport(t form.FieldType) (presentation.Report, bool) {
	return tc.recorder.Last(t)
}

// Package simhost is a stand-in native host. It serves the HTTP wire
// protocol (calls on /v1/call/{method}, events on /v1/events) and mimics
// what the vendor SDK does with a managed currency ledger, placements, user
// attributes and privacy flags. Content requests and shows complete
// asynchronously through events, like the real SDK.
package simhost

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"tjbridge/internal/native"
)

// Options shape the simulation. Zero values select defaults.
type Options struct {
	CurrencyName   string
	InitialBalance int
	// EventDelay separates a call from the events it triggers.
	EventDelay time.Duration
	// ShowDuration is how long content stays on screen.
	ShowDuration time.Duration
	// NoFill lists placements whose requests fail with "no fill".
	NoFill []string
	// NoContent lists placements whose requests succeed without content.
	NoContent []string
	// ConnectWarning, when set, is emitted as a connect warning after
	// every successful connect.
	ConnectWarning string
	Logger         *zerolog.Logger
}

const (
	defaultCurrencyName = "Coins"
	defaultEventDelay   = 10 * time.Millisecond
	defaultShowDuration = 30 * time.Millisecond
)

type placementState struct {
	creates    int
	available  bool
	ready      bool
	balances   map[string]int
	required   map[string]int
	entryPoint int
}

// Host is one simulated SDK instance.
type Host struct {
	opts      Options
	log       zerolog.Logger
	events    *broker
	table     map[string]methodFunc
	noFill    map[string]bool
	noContent map[string]bool

	mu         sync.Mutex
	connected  bool
	sdkKey     string
	debug      bool
	balance    int
	purchases  int
	userID     string
	level      int
	maxLevel   int
	segment    int
	tags       []string
	belowAge   int
	gdpr       int
	consent    int
	usPrivacy  string
	optOutAdID bool
	placements map[string]*placementState
	timers     []*time.Timer
	closed     bool
}

// New constructs a Host.
func New(opts Options) *Host {
	if opts.CurrencyName == "" {
		opts.CurrencyName = defaultCurrencyName
	}
	if opts.EventDelay <= 0 {
		opts.EventDelay = defaultEventDelay
	}
	if opts.ShowDuration <= 0 {
		opts.ShowDuration = defaultShowDuration
	}
	lg := zerolog.Nop()
	if opts.Logger != nil {
		lg = *opts.Logger
	}
	h := &Host{
		opts:       opts,
		log:        lg.With().Str("component", "simhost").Logger(),
		noFill:     toSet(opts.NoFill),
		noContent:  toSet(opts.NoContent),
		balance:    opts.InitialBalance,
		segment:    -1,
		belowAge:   2,
		gdpr:       2,
		consent:    2,
		placements: make(map[string]*placementState),
	}
	h.events = newBroker(h.log)
	h.table = h.methods()
	return h
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Handler returns the wire protocol router.
func (h *Host) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/v1/call/{method}", h.handleCall)
	r.Get("/v1/events", h.events.serve)
	return r
}

type callRequest struct {
	ID   string            `json:"id"`
	Args []json.RawMessage `json:"args"`
}

// callError is a failure the host reports in the wire error body.
type callError struct {
	status  int
	code    string
	message string
}

func (e *callError) Error() string { return e.code + ": " + e.message }

func fail(code, msg string) error {
	return &callError{status: http.StatusUnprocessableEntity, code: code, message: msg}
}

func (h *Host) handleCall(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")
	var req callRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, &callError{status: http.StatusBadRequest, code: "E_BAD_REQUEST", message: "invalid JSON body"})
		return
	}
	fn, ok := h.table[method]
	if !ok {
		writeError(w, &callError{status: http.StatusNotFound, code: "E_UNKNOWN_METHOD", message: "unknown method " + method})
		return
	}
	res, err := fn(call{id: req.ID, args: args(req.Args)})
	if err != nil {
		h.log.Debug().Err(err).Str("method", method).Msg("call failed")
		writeError(w, err)
		return
	}
	h.log.Debug().Str("method", method).Str("id", req.ID).Msg("call")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": res})
}

func writeError(w http.ResponseWriter, err error) {
	ce, ok := err.(*callError)
	if !ok {
		ce = &callError{status: http.StatusInternalServerError, code: "E_INTERNAL", message: err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ce.status)
	body := map[string]any{"error": map[string]string{"code": ce.code, "message": ce.message}}
	_ = json.NewEncoder(w).Encode(body)
}

// Emit pushes env to every connected event stream.
func (h *Host) Emit(env native.Envelope) { h.events.publish(env) }

// after runs fn once d has passed unless the host is closed first.
func (h *Host) after(d time.Duration, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.timers = append(h.timers, time.AfterFunc(d, fn))
}

// Close stops pending timers and ends every event stream.
func (h *Host) Close() {
	h.mu.Lock()
	h.closed = true
	timers := h.timers
	h.timers = nil
	h.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
	h.events.close()
}

// Balance returns the ledger balance.
func (h *Host) Balance() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.balance
}

// Creates reports how many createPlacement calls named the placement.
func (h *Host) Creates(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p := h.placements[name]; p != nil {
		return p.creates
	}
	return 0
}

// Subscribers reports open event streams.
func (h *Host) Subscribers() int { return h.events.count() }

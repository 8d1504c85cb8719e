package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tjbridge/internal/bridge"
	"tjbridge/internal/native"
	"tjbridge/internal/session"
	"tjbridge/pkg/types"
)

// Options wires the daemon's collaborators into the mux.
type Options struct {
	Client *bridge.Client
	// Session runs POST /connect. Without it the bridge client is
	// connected directly and the SDK key is required.
	Session *session.Bootstrapper
	// Events backs GET /events. Nil disables the stream.
	Events *EventBroker
	// ConnectDefaults fill the fields a POST /connect body leaves empty.
	ConnectDefaults session.Options
	// Ready reports readiness for /readyz. Nil means always ready.
	Ready func() bool
}

type api struct {
	Options
	ops *opTable
}

// NewMux builds the daemon's HTTP handler.
func NewMux(opts Options) http.Handler {
	a := &api{Options: opts, ops: newOpTable()}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(AccessLog)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.Post("/connect", a.connect)
	r.Get("/status", a.status)
	r.Put("/debug", a.setDebug)

	r.Get("/currency", a.currencyBalance)
	r.Post("/currency/spend", a.spendCurrency)
	r.Post("/currency/award", a.awardCurrency)
	r.Post("/purchases", a.trackPurchase)

	r.Route("/user", a.userRoutes)
	r.Route("/privacy", a.privacyRoutes)
	r.Route("/placements", a.placementRoutes)

	r.Get("/operations/{id}", a.getOperation)
	r.Delete("/operations/{id}", a.cancelOperation)

	if a.Events != nil {
		r.Get("/events", a.Events.ServeHTTP)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.Ready == nil || a.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("starting"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into v. An empty body is an error unless
// optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	if r.ContentLength == 0 && optional {
		return nil
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return statusError{code: http.StatusUnsupportedMediaType, msg: "Content-Type must be application/json"}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return statusError{code: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return badRequest("invalid JSON body")
	}
	return nil
}

// connect runs the session flow. Body fields override ConnectDefaults;
// flags are merged over the default flags.
func (a *api) connect(w http.ResponseWriter, r *http.Request) {
	var req types.ConnectRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	opts := a.ConnectDefaults
	if req.SDKKey != "" {
		opts.SDKKey = req.SDKKey
	}
	if req.UserID != "" {
		opts.UserID = req.UserID
	}
	if len(req.Flags) > 0 {
		merged := make(map[string]any, len(opts.Flags)+len(req.Flags))
		for k, v := range opts.Flags {
			merged[k] = v
		}
		for k, v := range req.Flags {
			merged[k] = v
		}
		opts.Flags = merged
	}
	warning := make(chan string, 1)
	onWarning := opts.OnWarning
	opts.OnWarning = func(env native.Envelope) {
		if onWarning != nil {
			onWarning(env)
		}
		select {
		case warning <- env.Error:
		default:
		}
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	var err error
	if a.Session != nil {
		_, err = a.Session.Connect(ctx, opts)
	} else if opts.SDKKey == "" {
		err = session.ErrNoSDKKey
	} else {
		err = a.Client.Connect(ctx, opts.SDKKey, opts.Flags, opts.OnWarning)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := types.ConnectResponse{Connected: true}
	select {
	case msg := <-warning:
		resp.Warning = msg
	default:
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	connected, err := a.Client.IsConnected(r.Context())
	if err != nil {
		logger().Debug().Err(err).Msg("isConnected failed")
	}
	resp := types.StatusResponse{
		Connected:     connected,
		Subscriptions: a.Client.ActiveSubscriptions(),
		Placements:    []types.PlacementStatus{},
		Platform:      a.Client.Platform(),
	}
	for _, p := range a.Client.Placements() {
		resp.Placements = append(resp.Placements, placementStatus(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) setDebug(w http.ResponseWriter, r *http.Request) {
	var req types.ValueRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Bool == nil {
		writeError(w, r, badRequest("bool is required"))
		return
	}
	if err := a.Client.SetDebugEnabled(r.Context(), *req.Bool); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) currencyBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := a.Client.GetCurrencyBalance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (a *api) spendCurrency(w http.ResponseWriter, r *http.Request) {
	a.currencyOp(w, r, a.Client.SpendCurrency)
}

func (a *api) awardCurrency(w http.ResponseWriter, r *http.Request) {
	a.currencyOp(w, r, a.Client.AwardCurrency)
}

func (a *api) currencyOp(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, amount float64) (types.CurrencyBalance, error)) {
	var req amountBody
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.value()
	if err != nil {
		writeError(w, r, err)
		return
	}
	bal, err := fn(r.Context(), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

// amountBody is types.AmountRequest as received: the amount may arrive as
// a JSON number or as text, and both go through bridge.ParseAmount.
type amountBody struct {
	Amount json.RawMessage `json:"amount"`
}

func (b amountBody) value() (float64, error) {
	text := string(b.Amount)
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(b.Amount, &text); err != nil {
			return 0, err
		}
	}
	return bridge.ParseAmount(text)
}

func (a *api) trackPurchase(w http.ResponseWriter, r *http.Request) {
	var req types.PurchaseRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.CurrencyCode) == "" {
		writeError(w, r, badRequest("currency_code is required"))
		return
	}
	if err := a.Client.TrackPurchase(r.Context(), req.CurrencyCode, req.Price); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

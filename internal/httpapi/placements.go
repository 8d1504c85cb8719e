package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tjbridge/internal/bridge"
	"tjbridge/pkg/types"
)

func (a *api) placementRoutes(r chi.Router) {
	r.Get("/", a.listPlacements)
	r.Post("/", a.createPlacement)
	r.Route("/{name}", func(r chi.Router) {
		r.Get("/", a.withPlacement(func(w http.ResponseWriter, r *http.Request, p *bridge.Placement) {
			writeJSON(w, http.StatusOK, placementStatus(p))
		}))
		r.Post("/request", a.requestContent)
		r.Post("/show", a.withPlacement(a.showContent))
		r.Get("/ready", a.withPlacement(a.placementBool((*bridge.Placement).IsContentReady)))
		r.Get("/available", a.withPlacement(a.placementBool((*bridge.Placement).IsContentAvailable)))
		r.Get("/currency/{currencyID}", a.withPlacement(a.getAmount((*bridge.Placement).GetCurrencyBalance)))
		r.Put("/currency/{currencyID}", a.withPlacement(a.setAmount((*bridge.Placement).SetCurrencyBalance)))
		r.Get("/required/{currencyID}", a.withPlacement(a.getAmount((*bridge.Placement).GetRequiredAmount)))
		r.Put("/required/{currencyID}", a.withPlacement(a.setAmount((*bridge.Placement).SetRequiredAmount)))
		r.Get("/entry-point", a.withPlacement(a.getEntryPoint))
		r.Put("/entry-point", a.withPlacement(a.setEntryPoint))
	})
}

func placementStatus(p *bridge.Placement) types.PlacementStatus {
	st := types.PlacementStatus{Name: p.Name(), State: string(p.State()), OperationID: p.PendingOperation()}
	if msg, ok := p.LastError(); ok {
		st.Error = msg
	}
	return st
}

func (a *api) listPlacements(w http.ResponseWriter, r *http.Request) {
	out := []types.PlacementStatus{}
	for _, p := range a.Client.Placements() {
		out = append(out, placementStatus(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) createPlacement(w http.ResponseWriter, r *http.Request) {
	var req types.CreatePlacementRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.Client.NewPlacement(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, placementStatus(p))
}

type placementHandler func(w http.ResponseWriter, r *http.Request, p *bridge.Placement)

// withPlacement resolves {name} to the latest placement object or 404s.
func (a *api) withPlacement(h placementHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		p, ok := a.Client.Placement(name)
		if !ok {
			writeError(w, r, notFound("unknown placement: "+name))
			return
		}
		h(w, r, p)
	}
}

// requestContent creates the placement on first use.
func (a *api) requestContent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := a.Client.Placement(name)
	if !ok {
		var err error
		if p, err = a.Client.NewPlacement(r.Context(), name); err != nil {
			writeError(w, r, err)
			return
		}
	}
	op, err := p.RequestContent(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.await(w, r, p, op)
}

func (a *api) showContent(w http.ResponseWriter, r *http.Request, p *bridge.Placement) {
	op, err := p.ShowContent(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.await(w, r, p, op)
}

// await answers with the operation outcome, or 202 with the operation id
// when ?wait=false is set or the wait bound passes first.
func (a *api) await(w http.ResponseWriter, r *http.Request, p *bridge.Placement, op *bridge.Operation) {
	a.ops.add(op)
	if r.URL.Query().Get("wait") == "false" {
		writeJSON(w, http.StatusAccepted, operationResponse(op, p))
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if waitTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, waitTimeout)
		defer tcancel()
	}
	if _, err := op.Wait(ctx); err != nil && ctx.Err() != nil {
		writeJSON(w, http.StatusAccepted, operationResponse(op, p))
		return
	}
	resp := operationResponse(op, p)
	if _, err := op.Result(); err != nil {
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func operationResponse(op *bridge.Operation, p *bridge.Placement) types.OperationResponse {
	resp := types.OperationResponse{OperationID: op.ID()}
	if p != nil {
		resp.State = placementStatus(p)
	} else {
		resp.State = types.PlacementStatus{Name: op.Placement()}
	}
	select {
	case <-op.Done():
		n, err := op.Result()
		resp.Notification = string(n)
		if err != nil {
			resp.Error = err.Error()
		}
	default:
	}
	for _, n := range op.Seen() {
		if string(n) != resp.Notification {
			resp.Seen = append(resp.Seen, string(n))
		}
	}
	return resp
}

func (a *api) placementBool(fn func(*bridge.Placement, context.Context) (bool, error)) placementHandler {
	return func(w http.ResponseWriter, r *http.Request, p *bridge.Placement) {
		v, err := fn(p, r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ValueResponse{Value: v})
	}
}

func (a *api) getAmount(fn func(*bridge.Placement, context.Context, string) (int, error)) placementHandler {
	return func(w http.ResponseWriter, r *http.Request, p *bridge.Placement) {
		v, err := fn(p, r.Context(), chi.URLParam(r, "currencyID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ValueResponse{Value: v})
	}
}

func (a *api) setAmount(fn func(*bridge.Placement, context.Context, string, int) error) placementHandler {
	return func(w http.ResponseWriter, r *http.Request, p *bridge.Placement) {
		var req types.PlacementCurrencyRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeError(w, r, err)
			return
		}
		if err := fn(p, r.Context(), chi.URLParam(r, "currencyID"), req.Amount); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// getEntryPoint answers null when the SDK reports an index outside the
// enumeration.
func (a *api) getEntryPoint(w http.ResponseWriter, r *http.Request, p *bridge.Placement) {
	e, ok, err := p.GetEntryPoint(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var v any
	if ok {
		v = e.String()
	}
	writeJSON(w, http.StatusOK, types.ValueResponse{Value: v})
}

func (a *api) setEntryPoint(w http.ResponseWriter, r *http.Request, p *bridge.Placement) {
	var req types.EntryPointRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := bridge.ParseEntryPoint(req.EntryPoint)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := p.SetEntryPoint(r.Context(), e); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

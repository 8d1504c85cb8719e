package httpapi

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"tjbridge/internal/bridge"
)

// opTable remembers operations started over HTTP until they finish, so
// GET and DELETE /operations/{id} can find them.
type opTable struct {
	mu  sync.Mutex
	ops map[string]*bridge.Operation
}

func newOpTable() *opTable { return &opTable{ops: make(map[string]*bridge.Operation)} }

func (t *opTable) add(op *bridge.Operation) {
	t.mu.Lock()
	if _, ok := t.ops[op.ID()]; ok {
		t.mu.Unlock()
		return
	}
	t.ops[op.ID()] = op
	t.mu.Unlock()
	go func() {
		<-op.Done()
		t.mu.Lock()
		delete(t.ops, op.ID())
		t.mu.Unlock()
	}()
}

func (t *opTable) get(id string) (*bridge.Operation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[id]
	return op, ok
}

func (a *api) getOperation(w http.ResponseWriter, r *http.Request) {
	op, ok := a.ops.get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, notFound("unknown or finished operation"))
		return
	}
	p, _ := a.Client.Placement(op.Placement())
	writeJSON(w, http.StatusOK, operationResponse(op, p))
}

// cancelOperation stops a pending request or show; the operation ends
// with a canceled error.
func (a *api) cancelOperation(w http.ResponseWriter, r *http.Request) {
	op, ok := a.ops.get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, notFound("unknown or finished operation"))
		return
	}
	op.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

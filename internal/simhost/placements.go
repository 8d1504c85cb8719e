package simhost

import (
	"tjbridge/internal/native"
)

// placement returns the named state or fails as the SDK does for a
// placement that was never created. Callers hold h.mu.
func (h *Host) placement(name string) (*placementState, error) {
	p := h.placements[name]
	if p == nil {
		return nil, fail("E_NO_PLACEMENT", "placement not created: "+name)
	}
	return p, nil
}

func (h *Host) placementEvent(name, opID string, n string, errMsg string) native.Envelope {
	return native.Envelope{Channel: native.ChannelPlacement, Name: n, Placement: name, ID: opID, Error: errMsg}
}

func (h *Host) createPlacement(c call) (any, error) {
	name, err := c.args.str(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.placements[name]
	if p == nil {
		p = &placementState{balances: map[string]int{}, required: map[string]int{}}
		h.placements[name] = p
	}
	p.creates++
	return nil, nil
}

func (h *Host) requestPlacement(c call) (any, error) {
	name, err := c.args.str(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	p, err := h.placement(name)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	connected := h.connected
	noFill, noContent := h.noFill[name], h.noContent[name]
	p.available, p.ready = false, false
	h.mu.Unlock()

	delay := h.opts.EventDelay
	switch {
	case !connected:
		h.after(delay, func() {
			h.Emit(h.placementEvent(name, c.id, "requestDidFail", "Tapjoy SDK is not connected"))
		})
	case noFill:
		h.after(delay, func() {
			h.Emit(h.placementEvent(name, c.id, "requestDidFail", "No fill"))
		})
	case noContent:
		h.after(delay, func() {
			h.Emit(h.placementEvent(name, c.id, "requestDidSucceed", ""))
		})
	default:
		h.after(delay, func() {
			h.mu.Lock()
			p.available = true
			h.mu.Unlock()
			h.Emit(h.placementEvent(name, c.id, "requestDidSucceed", ""))
			h.after(delay, func() {
				h.mu.Lock()
				p.ready = true
				h.mu.Unlock()
				h.Emit(h.placementEvent(name, c.id, "contentIsReady", ""))
			})
		})
	}
	return nil, nil
}

func (h *Host) showPlacement(c call) (any, error) {
	name, err := c.args.str(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	p, err := h.placement(name)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	if !p.ready {
		h.mu.Unlock()
		return nil, fail("E_NOT_READY", "content is not ready for "+name)
	}
	p.ready, p.available = false, false
	h.mu.Unlock()

	h.after(h.opts.EventDelay, func() {
		h.Emit(h.placementEvent(name, c.id, "contentDidAppear", ""))
		h.after(h.opts.ShowDuration, func() {
			h.Emit(h.placementEvent(name, c.id, "contentDidDisappear", ""))
		})
	})
	return nil, nil
}

func (h *Host) placementFlag(fn func(p *placementState) bool) methodFunc {
	return func(c call) (any, error) {
		name, err := c.args.str(0)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		p, err := h.placement(name)
		if err != nil {
			return nil, err
		}
		return fn(p), nil
	}
}

// setPlacementAmount handles (amount, currencyId, placement) setters.
func (h *Host) setPlacementAmount(table func(p *placementState) map[string]int) methodFunc {
	return func(c call) (any, error) {
		n, err := c.args.integer(0)
		if err != nil {
			return nil, err
		}
		cur, err := c.args.str(1)
		if err != nil {
			return nil, err
		}
		name, err := c.args.str(2)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fail("E_BAD_ARGS", "amount must be >= 0")
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		p, err := h.placement(name)
		if err != nil {
			return nil, err
		}
		table(p)[cur] = n
		return nil, nil
	}
}

// getPlacementAmount handles (currencyId, placement) getters; -1 when unset.
func (h *Host) getPlacementAmount(table func(p *placementState) map[string]int) methodFunc {
	return func(c call) (any, error) {
		cur, err := c.args.str(0)
		if err != nil {
			return nil, err
		}
		name, err := c.args.str(1)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		p, err := h.placement(name)
		if err != nil {
			return nil, err
		}
		if v, ok := table(p)[cur]; ok {
			return v, nil
		}
		return -1, nil
	}
}

func (h *Host) setEntryPoint(c call) (any, error) {
	name, err := c.args.str(0)
	if err != nil {
		return nil, err
	}
	idx, err := c.args.integer(1)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := h.placement(name)
	if err != nil {
		return nil, err
	}
	p.entryPoint = idx
	return nil, nil
}

func (h *Host) getEntryPoint(c call) (any, error) {
	name, err := c.args.str(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := h.placement(name)
	if err != nil {
		return nil, err
	}
	return p.entryPoint, nil
}

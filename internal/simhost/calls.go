package simhost

import (
	"fmt"
	"math"
	"strings"

	"tjbridge/internal/native"
)

type methodFunc func(c call) (any, error)

const (
	tagConnectSuccess = "TJC_Connect_Success"
	tagConnectWarning = "TJC_Connect_Warning"
	flagUserID        = "TJC_OPTION_USER_ID"
)

func (h *Host) methods() map[string]methodFunc {
	return map[string]methodFunc{
		"connect":            h.connect,
		"isConnected":        h.isConnected,
		"getCurrencyBalance": h.getCurrencyBalance,
		"spendCurrency":      h.spendCurrency,
		"awardCurrency":      h.awardCurrency,
		"trackPurchase":      h.trackPurchase,
		"setDebugEnabled":    h.setDebugEnabled,

		"setUserId":      h.setUserID,
		"getUserId":      h.getter(func() any { return h.userID }),
		"setUserLevel":   h.setInt(&h.level),
		"getUserLevel":   h.getter(func() any { return h.level }),
		"setMaxLevel":    h.setInt(&h.maxLevel),
		"getMaxLevel":    h.getter(func() any { return h.maxLevel }),
		"setUserSegment": h.setUserSegment,
		"getUserSegment": h.getter(func() any { return h.segment }),
		"setUserTags":    h.setUserTags,
		"getUserTags":    h.getter(func() any { return append([]string{}, h.tags...) }),
		"clearUserTags":  h.clearUserTags,
		"addUserTag":     h.addUserTag,
		"removeUserTag":  h.removeUserTag,

		"createPlacement":             h.createPlacement,
		"requestPlacement":            h.requestPlacement,
		"showPlacement":               h.showPlacement,
		"isContentReady":              h.placementFlag(func(p *placementState) bool { return p.ready }),
		"isContentAvailable":          h.placementFlag(func(p *placementState) bool { return p.available }),
		"setCurrencyBalance":          h.setPlacementAmount(func(p *placementState) map[string]int { return p.balances }),
		"getPlacementCurrencyBalance": h.getPlacementAmount(func(p *placementState) map[string]int { return p.balances }),
		"setRequiredAmount":           h.setPlacementAmount(func(p *placementState) map[string]int { return p.required }),
		"getRequiredAmount":           h.getPlacementAmount(func(p *placementState) map[string]int { return p.required }),
		"setEntryPoint":               h.setEntryPoint,
		"getEntryPoint":               h.getEntryPoint,

		"getBelowConsentAge":       h.getter(func() any { return h.belowAge }),
		"setBelowConsentAgeStatus": h.setStatus(&h.belowAge),
		"getSubjectToGDPR":         h.getter(func() any { return h.gdpr }),
		"setSubjectToGDPRStatus":   h.setStatus(&h.gdpr),
		"getUserConsent":           h.getter(func() any { return h.consent }),
		"setUserConsentStatus":     h.setStatus(&h.consent),
		"getUSPrivacy":             h.getter(func() any { return h.usPrivacy }),
		"setUSPrivacy":             h.setUSPrivacy,
		"optOutAdvertisingID":      h.optOutAdvertisingID,
		"getOptOutAdvertisingID":   h.getter(func() any { return h.optOutAdID }),
	}
}

func (h *Host) getter(fn func() any) methodFunc {
	return func(call) (any, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		return fn(), nil
	}
}

func (h *Host) setInt(dst *int) methodFunc {
	return func(c call) (any, error) {
		n, err := c.args.integer(0)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		*dst = n
		h.mu.Unlock()
		return nil, nil
	}
}

func (h *Host) setStatus(dst *int) methodFunc {
	return func(c call) (any, error) {
		n, err := c.args.integer(0)
		if err != nil {
			return nil, err
		}
		if n < 0 || n > 2 {
			return nil, fail("E_BAD_ARGS", fmt.Sprintf("status %d out of range", n))
		}
		h.mu.Lock()
		*dst = n
		h.mu.Unlock()
		return nil, nil
	}
}

func (h *Host) connect(c call) (any, error) {
	key, err := c.args.str(0)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, fail("E_CONNECT", "sdk key is required")
	}
	flags, _ := c.args.object(1)
	h.mu.Lock()
	h.connected = true
	h.sdkKey = key
	if uid, ok := flags[flagUserID].(string); ok && uid != "" {
		h.userID = uid
	}
	warning := h.opts.ConnectWarning
	h.mu.Unlock()
	h.after(h.opts.EventDelay, func() {
		h.Emit(native.Envelope{Channel: native.ChannelConnection, Name: tagConnectSuccess, ID: c.id})
		if warning != "" {
			h.Emit(native.Envelope{Channel: native.ChannelConnection, Name: tagConnectWarning, Error: warning, ID: c.id})
		}
	})
	return true, nil
}

func (h *Host) isConnected(call) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected, nil
}

type balance struct {
	CurrencyName string `json:"currencyName"`
	Amount       int    `json:"amount"`
}

func (h *Host) requireConnected() error {
	if !h.connected {
		return fail("E_NOT_CONNECTED", "Tapjoy SDK is not connected")
	}
	return nil
}

func (h *Host) getCurrencyBalance(call) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.requireConnected(); err != nil {
		return nil, err
	}
	return balance{CurrencyName: h.opts.CurrencyName, Amount: h.balance}, nil
}

func (h *Host) amount(c call) (int, error) {
	f, err := c.args.num(0)
	if err != nil {
		return 0, err
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fail("E_BAD_ARGS", "amount must be a non-negative number")
	}
	return int(f), nil
}

func (h *Host) spendCurrency(c call) (any, error) {
	n, err := h.amount(c)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.requireConnected(); err != nil {
		return nil, err
	}
	if n > h.balance {
		return nil, fail("E_SPEND", "Balance is less than the amount to spend")
	}
	h.balance -= n
	return balance{CurrencyName: h.opts.CurrencyName, Amount: h.balance}, nil
}

func (h *Host) awardCurrency(c call) (any, error) {
	n, err := h.amount(c)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.requireConnected(); err != nil {
		return nil, err
	}
	h.balance += n
	return balance{CurrencyName: h.opts.CurrencyName, Amount: h.balance}, nil
}

func (h *Host) trackPurchase(c call) (any, error) {
	if _, err := c.args.str(0); err != nil {
		return nil, err
	}
	if _, err := c.args.num(1); err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.purchases++
	h.mu.Unlock()
	return nil, nil
}

func (h *Host) setDebugEnabled(c call) (any, error) {
	b, err := c.args.boolean(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.debug = b
	h.mu.Unlock()
	return nil, nil
}

func (h *Host) setUserID(c call) (any, error) {
	id, err := c.args.str(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.userID = id
	h.mu.Unlock()
	return id, nil
}

func (h *Host) setUserSegment(c call) (any, error) {
	n, err := c.args.integer(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.segment = n
	h.mu.Unlock()
	return nil, nil
}

func (h *Host) setUserTags(c call) (any, error) {
	tags, err := c.args.strings(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.tags = dedupe(tags)
	h.mu.Unlock()
	return nil, nil
}

func (h *Host) clearUserTags(call) (any, error) {
	h.mu.Lock()
	h.tags = nil
	h.mu.Unlock()
	return nil, nil
}

func (h *Host) addUserTag(c call) (any, error) {
	tag, err := c.args.str(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.tags = dedupe(append(h.tags, tag))
	h.mu.Unlock()
	return nil, nil
}

func (h *Host) removeUserTag(c call) (any, error) {
	tag, err := c.args.str(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	out := h.tags[:0]
	for _, t := range h.tags {
		if t != tag {
			out = append(out, t)
		}
	}
	h.tags = out
	h.mu.Unlock()
	return nil, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (h *Host) setUSPrivacy(c call) (any, error) {
	s, err := c.args.str(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.usPrivacy = s
	h.mu.Unlock()
	return nil, nil
}

func (h *Host) optOutAdvertisingID(c call) (any, error) {
	b, err := c.args.boolean(0)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.optOutAdID = b
	h.mu.Unlock()
	return nil, nil
}

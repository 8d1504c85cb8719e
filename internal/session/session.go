// Package session runs the app-side connect flow: restore the SDK key and
// user id, apply privacy flags, enable debug logging, settle tracking
// permission and connect.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tjbridge/internal/bridge"
	"tjbridge/internal/keystore"
	"tjbridge/internal/native"
)

// TrackingStatus is the app tracking authorization state.
type TrackingStatus string

const (
	TrackingAuthorized    TrackingStatus = "authorized"
	TrackingUnavailable   TrackingStatus = "unavailable"
	TrackingDenied        TrackingStatus = "denied"
	TrackingRestricted    TrackingStatus = "restricted"
	TrackingNotDetermined TrackingStatus = "not-determined"
)

// TrackingPrompt reports and requests tracking permission.
type TrackingPrompt interface {
	Status(ctx context.Context) (TrackingStatus, error)
	Request(ctx context.Context) (TrackingStatus, error)
}

// StaticPrompt always answers the same status. Hosts without a permission
// dialog use TrackingUnavailable.
type StaticPrompt TrackingStatus

func (p StaticPrompt) Status(context.Context) (TrackingStatus, error)  { return TrackingStatus(p), nil }
func (p StaticPrompt) Request(context.Context) (TrackingStatus, error) { return TrackingStatus(p), nil }

// Privacy holds consent flags applied before connecting.
type Privacy struct {
	BelowConsentAge bridge.Status
	SubjectToGDPR   bridge.Status
	UserConsent     bridge.Status
	USPrivacy       string
}

// Options drive one Connect. Empty SDKKey and UserID fall back to the
// stored values.
type Options struct {
	SDKKey    string
	UserID    string
	Flags     map[string]any
	Privacy   *Privacy
	Debug     bool
	Prompt    TrackingPrompt
	OnWarning func(native.Envelope)
}

// Result describes what Connect sent.
type Result struct {
	SDKKey   string
	UserID   string
	Flags    map[string]any
	Tracking TrackingStatus
}

// ErrNoSDKKey means neither the options nor the store carry a key.
var ErrNoSDKKey = errors.New("no sdk key configured or stored")

// Bootstrapper ties a bridge client to a key/value store.
type Bootstrapper struct {
	client *bridge.Client
	store  keystore.Store
	log    zerolog.Logger
}

func New(client *bridge.Client, store keystore.Store, logger *zerolog.Logger) *Bootstrapper {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	if store == nil {
		store = keystore.NewMemory()
	}
	return &Bootstrapper{client: client, store: store, log: lg.With().Str("component", "session").Logger()}
}

// StoredSDKKey returns the persisted key, if any.
func (b *Bootstrapper) StoredSDKKey(ctx context.Context) (string, bool, error) {
	return b.store.Get(ctx, keystore.KeySDKKey)
}

// StoredUserID returns the persisted user id, if any.
func (b *Bootstrapper) StoredUserID(ctx context.Context) (string, bool, error) {
	return b.store.Get(ctx, keystore.KeyUserID)
}

// Connect runs the flow. Privacy and debug setters are fire-and-forget, so
// only a linkage failure stops the flow before the connect call.
func (b *Bootstrapper) Connect(ctx context.Context, opts Options) (Result, error) {
	var res Result
	if opts.Privacy != nil {
		if err := b.applyPrivacy(ctx, *opts.Privacy); err != nil {
			return res, err
		}
	}

	key := strings.TrimSpace(opts.SDKKey)
	if key == "" {
		stored, ok, err := b.store.Get(ctx, keystore.KeySDKKey)
		if err != nil {
			return res, fmt.Errorf("load sdk key: %w", err)
		}
		if ok {
			key = stored
		}
	}
	if key == "" {
		return res, ErrNoSDKKey
	}
	if err := b.store.Set(ctx, keystore.KeySDKKey, key); err != nil {
		return res, fmt.Errorf("store sdk key: %w", err)
	}
	res.SDKKey = key

	if err := b.client.SetDebugEnabled(ctx, opts.Debug); err != nil {
		return res, err
	}

	userID := strings.TrimSpace(opts.UserID)
	if userID != "" {
		if err := b.store.Set(ctx, keystore.KeyUserID, userID); err != nil {
			return res, fmt.Errorf("store user id: %w", err)
		}
	} else if stored, ok, err := b.store.Get(ctx, keystore.KeyUserID); err != nil {
		return res, fmt.Errorf("load user id: %w", err)
	} else if ok {
		userID = stored
	}
	res.UserID = userID

	flags := make(map[string]any, len(opts.Flags)+1)
	for k, v := range opts.Flags {
		flags[k] = v
	}
	if userID != "" {
		flags[bridge.FlagUserID] = userID
	}
	res.Flags = flags

	res.Tracking = b.settleTracking(ctx, opts.Prompt)

	if err := b.client.Connect(ctx, key, flags, opts.OnWarning); err != nil {
		b.log.Error().Err(err).Msg("sdk failed to connect")
		return res, err
	}
	b.log.Info().Str("user_id", userID).Str("tracking", string(res.Tracking)).Msg("sdk connected")
	return res, nil
}

func (b *Bootstrapper) applyPrivacy(ctx context.Context, p Privacy) error {
	pp := b.client.Privacy()
	if err := pp.SetBelowConsentAgeStatus(ctx, p.BelowConsentAge); err != nil {
		return err
	}
	if err := pp.SetSubjectToGDPRStatus(ctx, p.SubjectToGDPR); err != nil {
		return err
	}
	if p.USPrivacy != "" {
		if err := pp.SetUSPrivacy(ctx, p.USPrivacy); err != nil {
			return err
		}
	}
	return pp.SetUserConsentStatus(ctx, p.UserConsent)
}

// settleTracking asks for permission unless it is already authorized or
// not applicable. The connect proceeds whatever the answer.
func (b *Bootstrapper) settleTracking(ctx context.Context, prompt TrackingPrompt) TrackingStatus {
	if prompt == nil {
		return TrackingUnavailable
	}
	st, err := prompt.Status(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("tracking status unavailable")
		return TrackingUnavailable
	}
	if st == TrackingAuthorized || st == TrackingUnavailable {
		return st
	}
	st, err = prompt.Request(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("tracking permission request failed")
	}
	return st
}

package bridge

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"tjbridge/internal/native"
	"tjbridge/pkg/types"
)

// PrivacyPolicy reads and writes the SDK's consent flags. Getter failures
// are logged before being returned.
type PrivacyPolicy struct {
	gw       *Gateway
	platform string
	log      zerolog.Logger
}

// Privacy returns the client's privacy policy accessor.
func (c *Client) Privacy() *PrivacyPolicy {
	return &PrivacyPolicy{gw: c.gw, platform: c.cfg.Platform, log: c.log.With().Str("component", "privacy").Logger()}
}

func (pp *PrivacyPolicy) status(ctx context.Context, method string) (Status, error) {
	var n int
	if err := pp.gw.Invoke(ctx, method, &n); err != nil {
		pp.log.Error().Err(err).Str("method", method).Msg("privacy query failed")
		return StatusUnknown, err
	}
	return Status(n), nil
}

func (pp *PrivacyPolicy) GetSubjectToGDPR(ctx context.Context) (Status, error) {
	return pp.status(ctx, "getSubjectToGDPR")
}

func (pp *PrivacyPolicy) SetSubjectToGDPRStatus(ctx context.Context, s Status) error {
	return pp.gw.Fire(ctx, "setSubjectToGDPRStatus", int(s))
}

func (pp *PrivacyPolicy) GetUserConsent(ctx context.Context) (Status, error) {
	return pp.status(ctx, "getUserConsent")
}

func (pp *PrivacyPolicy) SetUserConsentStatus(ctx context.Context, s Status) error {
	return pp.gw.Fire(ctx, "setUserConsentStatus", int(s))
}

func (pp *PrivacyPolicy) GetBelowConsentAge(ctx context.Context) (Status, error) {
	return pp.status(ctx, "getBelowConsentAge")
}

func (pp *PrivacyPolicy) SetBelowConsentAgeStatus(ctx context.Context, s Status) error {
	return pp.gw.Fire(ctx, "setBelowConsentAgeStatus", int(s))
}

// GetUSPrivacy returns the IAB US privacy string, e.g. 1YNN.
func (pp *PrivacyPolicy) GetUSPrivacy(ctx context.Context) (string, error) {
	var s string
	if err := pp.gw.Invoke(ctx, "getUSPrivacy", &s); err != nil {
		pp.log.Error().Err(err).Msg("privacy query failed")
		return "", err
	}
	return s, nil
}

func (pp *PrivacyPolicy) SetUSPrivacy(ctx context.Context, s string) error {
	return pp.gw.Fire(ctx, "setUSPrivacy", s)
}

func (pp *PrivacyPolicy) android() bool {
	return strings.EqualFold(pp.platform, native.PlatformAndroid)
}

// OptOutAdvertisingID is Android only; elsewhere it warns and does nothing.
func (pp *PrivacyPolicy) OptOutAdvertisingID(ctx context.Context, optOut bool) error {
	if !pp.android() {
		pp.log.Warn().Msg("optOutAdvertisingID is only supported on Android")
		return nil
	}
	return pp.gw.Fire(ctx, "optOutAdvertisingID", optOut)
}

// GetOptOutAdvertisingID is Android only; elsewhere it warns and reports
// false.
func (pp *PrivacyPolicy) GetOptOutAdvertisingID(ctx context.Context) (bool, error) {
	if !pp.android() {
		pp.log.Warn().Msg("getOptOutAdvertisingID is only supported on Android")
		return false, nil
	}
	var b bool
	err := pp.gw.Invoke(ctx, "getOptOutAdvertisingID", &b)
	return b, err
}

// Snapshot reads every flag. The first failure aborts.
func (pp *PrivacyPolicy) Snapshot(ctx context.Context) (types.PrivacyStatus, error) {
	var out types.PrivacyStatus
	gdpr, err := pp.GetSubjectToGDPR(ctx)
	if err != nil {
		return out, err
	}
	consent, err := pp.GetUserConsent(ctx)
	if err != nil {
		return out, err
	}
	below, err := pp.GetBelowConsentAge(ctx)
	if err != nil {
		return out, err
	}
	us, err := pp.GetUSPrivacy(ctx)
	if err != nil {
		return out, err
	}
	opt, err := pp.GetOptOutAdvertisingID(ctx)
	if err != nil {
		return out, err
	}
	out.SubjectToGDPR = gdpr.String()
	out.UserConsent = consent.String()
	out.BelowConsentAge = below.String()
	out.USPrivacy = us
	out.OptOutAdvertisingID = opt
	return out, nil
}

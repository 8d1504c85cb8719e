package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tjbridge/internal/bridge"
	"tjbridge/pkg/types"
)

func (a *api) userRoutes(r chi.Router) {
	r.Get("/", a.userProfile)
	r.Get("/id", a.getValue(func(ctx context.Context) (any, error) { return a.Client.GetUserID(ctx) }))
	r.Put("/id", a.setUserID)
	r.Get("/level", a.getValue(func(ctx context.Context) (any, error) { return a.Client.GetUserLevel(ctx) }))
	r.Put("/level", a.setInt(a.Client.SetUserLevel))
	r.Get("/max-level", a.getValue(func(ctx context.Context) (any, error) { return a.Client.GetMaxLevel(ctx) }))
	r.Put("/max-level", a.setInt(a.Client.SetMaxLevel))
	r.Get("/segment", a.getValue(func(ctx context.Context) (any, error) {
		s, err := a.Client.GetUserSegment(ctx)
		return int(s), err
	}))
	r.Put("/segment", a.setUserSegment)
	r.Get("/tags", a.getValue(func(ctx context.Context) (any, error) { return a.Client.GetUserTags(ctx) }))
	r.Put("/tags", a.setUserTags)
	r.Delete("/tags", a.clearUserTags)
	r.Post("/tags/{tag}", a.userTag(a.Client.AddUserTag))
	r.Delete("/tags/{tag}", a.userTag(a.Client.RemoveUserTag))
}

func (a *api) userProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := a.Client.UserProfile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (a *api) getValue(fn func(ctx context.Context) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fn(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ValueResponse{Value: v})
	}
}

func (a *api) setInt(fn func(ctx context.Context, v int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ValueRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Int == nil {
			writeError(w, r, badRequest("int is required"))
			return
		}
		if err := fn(r.Context(), *req.Int); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *api) setUserID(w http.ResponseWriter, r *http.Request) {
	var req types.ValueRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.String == nil {
		writeError(w, r, badRequest("string is required"))
		return
	}
	id, err := a.Client.SetUserID(r.Context(), *req.String)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ValueResponse{Value: id})
}

// setUserSegment accepts a segment name in string or a code in int.
func (a *api) setUserSegment(w http.ResponseWriter, r *http.Request) {
	var req types.ValueRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	var seg bridge.Segment
	switch {
	case req.String != nil:
		s, err := bridge.ParseSegment(*req.String)
		if err != nil {
			writeError(w, r, err)
			return
		}
		seg = s
	case req.Int != nil:
		seg = bridge.Segment(*req.Int)
	default:
		writeError(w, r, badRequest("string or int is required"))
		return
	}
	if err := a.Client.SetUserSegment(r.Context(), seg); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) setUserTags(w http.ResponseWriter, r *http.Request) {
	var req types.ValueRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Client.SetUserTags(r.Context(), req.List); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) clearUserTags(w http.ResponseWriter, r *http.Request) {
	if err := a.Client.ClearUserTags(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) userTag(fn func(ctx context.Context, tag string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context(), chi.URLParam(r, "tag")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Privacy flag names as they appear in /privacy/{flag}.
const (
	flagSubjectToGDPR   = "subject-to-gdpr"
	flagUserConsent     = "user-consent"
	flagBelowConsentAge = "below-consent-age"
	flagUSPrivacy       = "us-privacy"
	flagOptOutAdID      = "opt-out-advertising-id"
)

func (a *api) privacyRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		snap, err := a.Client.Privacy().Snapshot(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})
	r.Get("/{flag}", a.getPrivacy)
	r.Put("/{flag}", a.setPrivacy)
}

func (a *api) getPrivacy(w http.ResponseWriter, r *http.Request) {
	pp := a.Client.Privacy()
	ctx := r.Context()
	var (
		v   any
		err error
	)
	status := func(s bridge.Status, e error) {
		v, err = s.String(), e
	}
	switch flag := chi.URLParam(r, "flag"); flag {
	case flagSubjectToGDPR:
		status(pp.GetSubjectToGDPR(ctx))
	case flagUserConsent:
		status(pp.GetUserConsent(ctx))
	case flagBelowConsentAge:
		status(pp.GetBelowConsentAge(ctx))
	case flagUSPrivacy:
		v, err = pp.GetUSPrivacy(ctx)
	case flagOptOutAdID:
		v, err = pp.GetOptOutAdvertisingID(ctx)
	default:
		err = notFound("unknown privacy flag: " + flag)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ValueResponse{Value: v})
}

func (a *api) setPrivacy(w http.ResponseWriter, r *http.Request) {
	var req types.ValueRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	pp := a.Client.Privacy()
	ctx := r.Context()
	var err error
	switch flag := chi.URLParam(r, "flag"); flag {
	case flagSubjectToGDPR, flagUserConsent, flagBelowConsentAge:
		s, perr := statusValue(req)
		if perr != nil {
			err = perr
			break
		}
		switch flag {
		case flagSubjectToGDPR:
			err = pp.SetSubjectToGDPRStatus(ctx, s)
		case flagUserConsent:
			err = pp.SetUserConsentStatus(ctx, s)
		default:
			err = pp.SetBelowConsentAgeStatus(ctx, s)
		}
	case flagUSPrivacy:
		if req.String == nil {
			err = badRequest("string is required")
			break
		}
		err = pp.SetUSPrivacy(ctx, *req.String)
	case flagOptOutAdID:
		if req.Bool == nil {
			err = badRequest("bool is required")
			break
		}
		err = pp.OptOutAdvertisingID(ctx, *req.Bool)
	default:
		err = notFound("unknown privacy flag: " + flag)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusValue reads a tri-state from string (true/false/unknown), int
// (1/0/2) or bool.
func statusValue(req types.ValueRequest) (bridge.Status, error) {
	var raw string
	switch {
	case req.String != nil:
		raw = *req.String
	case req.Int != nil:
		raw = strconv.Itoa(*req.Int)
	case req.Bool != nil:
		raw = strconv.FormatBool(*req.Bool)
	default:
		return bridge.StatusUnknown, badRequest("string, int or bool is required")
	}
	s, ok := bridge.ParseStatus(raw)
	if !ok {
		return bridge.StatusUnknown, badRequest("invalid status: " + raw)
	}
	return s, nil
}

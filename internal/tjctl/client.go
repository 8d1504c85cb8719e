package tjctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tjbridge/pkg/types"
)

// APIError is a non-2xx answer from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon answered %d", e.Status)
	}
	return fmt.Sprintf("daemon answered %d: %s", e.Status, e.Message)
}

// API is a small client for the tjbridged HTTP API.
type API struct {
	base string
	hc   *http.Client
}

// NewAPI returns a client for the daemon at base. timeout bounds each
// request; zero means no bound.
func NewAPI(base string, timeout time.Duration) *API {
	return &API{base: strings.TrimRight(base, "/"), hc: &http.Client{Timeout: timeout}}
}

// Do sends body as JSON (nil sends nothing) and decodes the reply into out
// (nil discards). 202 is treated as success.
func (a *API) Do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er types.ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: er.Error}
		}
		// operation endpoints report failures with an operation body
		var op types.OperationResponse
		if json.Unmarshal(data, &op) == nil && op.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: op.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// PlacementPath builds /placements/{name}[/suffix...] with escaping.
func PlacementPath(name string, suffix ...string) string {
	p := "/placements/" + url.PathEscape(name)
	for _, s := range suffix {
		p += "/" + url.PathEscape(s)
	}
	return p
}

// Stream copies /events frames to w until ctx is done or the stream ends.
func (a *API) Stream(ctx context.Context, placement string, w io.Writer) error {
	u := a.base + "/events"
	if placement != "" {
		u += "?placement=" + url.QueryEscape(placement)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	// the stream is long-lived; only ctx ends it
	hc := &http.Client{Transport: a.hc.Transport}
	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if strings.HasPrefix(line, "data: ") {
			if _, werr := fmt.Fprintln(w, strings.TrimSpace(strings.TrimPrefix(line, "data: "))); werr != nil {
				return werr
			}
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

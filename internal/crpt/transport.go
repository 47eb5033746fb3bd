package crpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Wire paths
const (
	PathAuthKey        = "/api/v3/auth/cert/key"
	PathAuthToken      = "/api/v3/auth/cert"
	PathCreateDocument = "/api/v3/lk/documents/create"
)

// maxErrorBody caps how much of a failure response ends up in an error.
const maxErrorBody = 512

type response struct {
	status int
	body   []byte
}

func newRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, NewFormatError(fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &APIError{StatusCode: NoStatus, Kind: KindIO, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends req and reads the whole body. Only transport and read failures are
// returned as errors; the status is left to the caller.
func do(client Doer, req *http.Request) (*response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(fmt.Errorf("read response: %w", err))
	}
	return &response{status: resp.StatusCode, body: body}, nil
}

// failed reports whether the status is treated as a failure. Redirects are
// followed by the transport, so anything below 400 is a success.
func (r *response) failed() bool {
	return r.status >= http.StatusBadRequest
}

func (r *response) statusError() *APIError {
	body := strings.TrimSpace(string(r.body))
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	return NewStatusError(r.status, body)
}

func (r *response) decode(out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return NewFormatError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/logger"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/events"
)

// HTTPRelay speaks JSON over HTTP to a relay endpoint. Every verbed request
// POSTs to /relay/<verb>; the decoded response is returned inline and also
// emitted as an EventData envelope, reproducing the transport's push path.
type HTTPRelay struct {
	baseURL    string
	token      string
	httpClient *http.Client
	emitter    *events.Emitter
}

// HTTPOptions configures the HTTP relay client.
type HTTPOptions struct {
	// BaseURL is the relay endpoint, e.g. "https://relay.example.com".
	BaseURL string

	// Token is an opaque bearer token forwarded on every request. Token
	// issuance and refresh belong to the platform's auth layer, not here.
	Token string

	// Timeout bounds each HTTP request. Default 30s.
	Timeout time.Duration
}

// NewHTTPRelay creates an HTTP relay client.
func NewHTTPRelay(opts HTTPOptions) *HTTPRelay {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRelay{
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		httpClient: &http.Client{Timeout: timeout},
		emitter:    events.NewEmitter(),
	}
}

// Events returns the emitter carrying pushed envelopes.
func (r *HTTPRelay) Events() *events.Emitter {
	return r.emitter
}

// response is the relay's wire response.
type response struct {
	Records []Record `json:"records"`
	Error   string   `json:"error,omitempty"`
}

func (r *HTTPRelay) do(ctx context.Context, req Request) ([]Record, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("relay: encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/relay/%s", r.baseURL, req.Job.Verb)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("relay: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if r.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		logger.Error("relay request failed",
			"verb", req.Job.Verb, "collection", req.Collection, "error", err)
		return nil, fmt.Errorf("relay: %s %s: %w", req.Job.Verb, req.Collection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("relay: reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		relErr := &Error{StatusCode: resp.StatusCode, Message: string(respBody)}
		var decoded response
		if json.Unmarshal(respBody, &decoded) == nil && decoded.Error != "" {
			relErr.Message = decoded.Error
		}
		logger.Error("relay request rejected",
			"verb", req.Job.Verb, "collection", req.Collection, "status", resp.StatusCode)
		return nil, relErr
	}

	var decoded response
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			return nil, fmt.Errorf("relay: decoding response: %w", err)
		}
	}

	// Mirror the transport's push behavior: the response also arrives as a
	// "data" event. Consumers settle on whichever path reaches them first.
	r.emitter.Emit(EventData, Envelope{
		Job:        req.Job,
		Collection: req.Collection,
		Records:    decoded.Records,
	})

	return decoded.Records, nil
}

// Create sends a create request.
func (r *HTTPRelay) Create(ctx context.Context, req Request) ([]Record, error) {
	req.Job.Verb = VerbCreate
	return r.do(ctx, req)
}

// Find sends a find request.
func (r *HTTPRelay) Find(ctx context.Context, req Request) ([]Record, error) {
	req.Job.Verb = VerbFind
	return r.do(ctx, req)
}

// Update sends an update request.
func (r *HTTPRelay) Update(ctx context.Context, req Request) ([]Record, error) {
	req.Job.Verb = VerbUpdate
	return r.do(ctx, req)
}

// Delete sends a delete request. The Job must carry the target ObjectID
// since the response will not echo it.
func (r *HTTPRelay) Delete(ctx context.Context, req Request) error {
	req.Job.Verb = VerbDelete
	_, err := r.do(ctx, req)
	return err
}

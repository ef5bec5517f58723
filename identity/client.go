package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/divedesk/divegate/internal/errors"
)

// MePath is the identity endpoint consumed by the shell.
const MePath = "/api/v1/me"

// Client fetches the identity snapshot for a credential. The credential is
// opaque: it is forwarded as a bearer header and never inspected.
type Client interface {
	FetchMe(ctx context.Context, credential string) Result
}

// HTTPClient is the production Client over the backend's REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	nowTime    func() time.Time
}

var _ Client = (*HTTPClient)(nil)

// HTTPClientOption modifies an HTTPClient instance.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client (primarily for
// testing and custom transports).
func WithHTTPClient(hc *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) HTTPClientOption {
	return func(c *HTTPClient) {
		c.nowTime = nowFunc
	}
}

// NewHTTPClient creates a Client against the backend at baseURL.
func NewHTTPClient(baseURL string, options ...HTTPClientOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, errors.New("[NewHTTPClient] baseURL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, "[NewHTTPClient] invalid baseURL")
	}

	client := &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		nowTime:    time.Now,
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// FetchMe issues one GET to the identity endpoint and folds the HTTP
// outcome into a Result. Cache-busting headers and a timestamp query
// parameter keep intermediaries from serving a stale snapshot.
func (c *HTTPClient) FetchMe(ctx context.Context, credential string) Result {
	reqURL := c.baseURL + MePath + "?ts=" + strconv.FormatInt(c.nowTime().UnixNano(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{
			Kind: KindServerError,
			Err:  errors.Wrap(err, "[FetchMe] building request"),
		}
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{
			Kind:      KindServerError,
			Err:       errors.Wrap(apperrors.ErrServerUnavailable, err.Error()),
			Retryable: ctx.Err() == nil, // caller cancellation is not worth retrying
		}
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}

// decodeResponse classifies an HTTP response into the closed Result set.
func decodeResponse(resp *http.Response) Result {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// 401 wins over body content. Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Result{Kind: KindUnauthenticated, Err: apperrors.ErrUnauthenticated}

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Result{
			Kind: KindServerError,
			Err: errors.Wrap(apperrors.ErrServerUnavailable,
				fmt.Sprintf("[decodeResponse] status %d", resp.StatusCode)),
		}
	}

	var me Me
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return Result{
			Kind: KindMalformed,
			Err:  errors.Wrap(apperrors.ErrMalformedResponse, err.Error()),
		}
	}

	return Result{Kind: KindOK, Me: me}
}

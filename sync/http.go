package sync

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/carlmjohnson/requests"
)

// HTTPRequestTimeout is the default timeout for a single HTTP request to HubSpot.
const HTTPRequestTimeout = 60 * time.Second

// DefaultEndpoint is the root of the HubSpot API.
const DefaultEndpoint = "https://api.hubapi.com"

// exchange is what came back from a single HTTP round trip.
type exchange struct {
	StatusCode int
	Body       []byte
}

// fetch sends the request built by rb and captures the status and body of any response.
// Status validation is left to the caller so every status can be classified.
func fetch(ctx context.Context, rb *requests.Builder) (exchange, error) {
	var ex exchange
	err := rb.
		AddValidator(nil).
		Handle(func(res *http.Response) error {
			ex.StatusCode = res.StatusCode
			body, err := io.ReadAll(res.Body)
			ex.Body = body
			return err
		}).
		Fetch(ctx)
	return ex, err
}

// transientOutcome classifies the failures every operation retries: connectivity
// problems, 5xx and 429. It returns false when the caller should look at the status itself.
func transientOutcome(ctx context.Context, operation string, ex exchange, err error) (Outcome, bool) {
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Fatal(ctxErr), true
		}
		var urlErr *url.Error
		if ex.StatusCode != 0 || errors.As(err, &urlErr) {
			return Retryable(&TransportError{Operation: operation, Err: err}), true
		}
		return Fatal(err), true
	}
	if ex.StatusCode >= http.StatusInternalServerError || ex.StatusCode == http.StatusTooManyRequests {
		return Retryable(&StatusError{Operation: operation, StatusCode: ex.StatusCode, Body: string(ex.Body)}), true
	}
	return Outcome{}, false
}

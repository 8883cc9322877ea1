package httputil

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/heatmap/pkg/errors"
)

// MaxBodySize caps the size of a fetched point source.
const MaxBodySize = 256 << 20

// DefaultClient is used by [Get] when no client is supplied.
var DefaultClient = &http.Client{Timeout: 30 * time.Second}

// Get downloads url and returns the body and its Content-Type.
//
// Network errors, 429 and 5xx responses are retried. A 404 fails with
// NOT_FOUND, other 4xx responses and exhausted retries with NETWORK_ERROR.
func Get(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if client == nil {
		client = DefaultClient
	}

	var body []byte
	var ctype string
	err := Retry(ctx, DefaultAttempts, DefaultDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid url %s", url)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", url))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return errors.New(errors.ErrCodeNotFound, "fetch %s: not found", url)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return Retryable(errors.New(errors.ErrCodeNetwork, "fetch %s: %s", url, resp.Status))
		case resp.StatusCode >= 300:
			return errors.New(errors.ErrCodeNetwork, "fetch %s: %s", url, resp.Status)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
		if err != nil {
			return Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read %s", url))
		}
		if len(data) > MaxBodySize {
			return errors.New(errors.ErrCodeInvalidInput, "fetch %s: body exceeds %d bytes", url, MaxBodySize)
		}
		body, ctype = data, resp.Header.Get("Content-Type")
		return nil
	})
	if err != nil {
		return nil, "", unwrapRetryable(err)
	}
	return body, ctype, nil
}

func unwrapRetryable(err error) error {
	if re, ok := err.(*RetryableError); ok {
		return re.Err
	}
	return err
}

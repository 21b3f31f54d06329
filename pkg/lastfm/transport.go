package lastfm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// envelope is the <lfm> root of every API response.
type envelope struct {
	XMLName xml.Name `xml:"lfm"`
	Status  string   `xml:"status,attr"`
	Inner   []byte   `xml:",innerxml"`
}

type apiError struct {
	Code    int    `xml:"code,attr"`
	Message string `xml:",chardata"`
}

const (
	statusFailed = "failed"

	maxAttempts    = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// defaultBackOff is the retry schedule for failed requests.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialBackoff
	b.MaxInterval = maxBackoff
	return b
}

// call POSTs a signed request and returns the inner XML of a successful
// response. Network errors, 5xx responses and temporary API errors are
// retried with exponential backoff, up to maxAttempts requests in total.
func (c *Client) call(ctx context.Context, method string, params map[string]string, requiresAuth bool) ([]byte, error) {
	form, err := c.signedForm(method, params, requiresAuth)
	if err != nil {
		return nil, err
	}
	body := form.Encode()

	attempt := 0
	exhausted := false
	inner, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
		}

		inner, retry, err := c.do(ctx, body)
		if err != nil && !retry {
			return nil, backoff.Permanent(err)
		}
		exhausted = err != nil && attempt == maxAttempts
		return inner, err
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logDebugf("lastfm: %s attempt %d/%d failed, retrying in %v: %v", method, attempt, maxAttempts, next, err)
		}),
	)
	if err != nil {
		if exhausted {
			return nil, fmt.Errorf("max retries exceeded: %w", err)
		}
		return nil, err
	}

	c.logDebugf("lastfm: %s succeeded", method)
	return inner, nil
}

func (c *Client) signedForm(method string, params map[string]string, requiresAuth bool) (url.Values, error) {
	signed := make(map[string]string, len(params)+3)
	for k, v := range params {
		signed[k] = v
	}
	signed["method"] = method
	signed["api_key"] = c.apiKey

	if requiresAuth {
		if c.sessionKey == "" {
			return nil, ErrNoSessionKey
		}
		signed["sk"] = c.sessionKey
	}

	form := url.Values{}
	for k, v := range signed {
		form.Set(k, v)
	}
	form.Set("api_sig", calculateSignature(signed, c.apiSecret))
	return form, nil
}

// do performs one HTTP round trip. The bool result reports whether the
// failure is worth retrying.
func (c *Client) do(ctx context.Context, body string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, isNetworkError(err), fmt.Errorf("http request failed: %w", err)
	}
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("server error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var env envelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, false, fmt.Errorf("failed to parse XML response: %w", err)
	}

	if env.Status == statusFailed {
		var ae apiError
		if err := xml.Unmarshal(env.Inner, &ae); err != nil {
			return nil, false, fmt.Errorf("failed to parse error response: %w", err)
		}
		lfmErr := &Error{Code: ae.Code, Message: strings.TrimSpace(ae.Message)}
		return nil, lfmErr.Temporary(), lfmErr
	}

	return env.Inner, false, nil
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

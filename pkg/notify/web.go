package notify

import (
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

	"github.com/opst/eoflow/pkg/utils/retry"
	"github.com/sirupsen/logrus"
)

// Web posts events as JSON to URLs.
type Web struct {
	URLs    []*url.URL
	Client  *http.Client
	Timeout time.Duration
	Logger  logrus.FieldLogger

	// Retries after the first post to each URL, on 5xx responses or transport errors.
	Retries int

	// Backoff creates a backoff for retries to a URL.
	Backoff func() retry.Backoff

	now func() time.Time
}

func NewWeb(urls []*url.URL, timeout time.Duration, logger logrus.FieldLogger) *Web {
	return &Web{
		URLs:    urls,
		Client:  http.DefaultClient,
		Timeout: timeout,
		Logger:  logger,
		Retries: 2,
		Backoff: func() retry.Backoff {
			return retry.ExponentialBackoff(200*time.Millisecond, 2)
		},
		now: time.Now,
	}
}

// retryable is an error worth retrying.
type retryable struct {
	err error
}

func (r retryable) Error() string {
	return r.err.Error()
}

func (r retryable) Unwrap() []error {
	return []error{r.err, retry.ErrRetry}
}

func settle(err error) error {
	if r := (retryable{}); errors.As(err, &r) {
		return r.err
	}
	return err
}

func (w *Web) post(ctx context.Context, u *url.URL, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return retryable{fmt.Errorf("%w: %w", ErrDeliveryFailed, err)}
	}
	defer resp.Body.Close()

	if 200 <= resp.StatusCode && resp.StatusCode < 300 {
		return nil
	}

	var failure error
	ctype := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ctype, "text/") && !strings.Contains(ctype, "json") {
		failure = fmt.Errorf("%w (%s %d, Content-Type: %s)", ErrDeliveryFailed, u, resp.StatusCode, ctype)
	} else {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		failure = fmt.Errorf("%w (%s %d): %s", ErrDeliveryFailed, u, resp.StatusCode, string(body))
	}
	if 500 <= resp.StatusCode {
		return retryable{failure}
	}
	return failure
}

// deliver posts payload to u, retrying up to w.Retries times.
func (w *Web) deliver(ctx context.Context, u *url.URL, payload []byte) error {
	err := w.post(ctx, u, payload)
	if w.Retries <= 0 || w.Backoff == nil || !errors.Is(err, retry.ErrRetry) {
		return settle(err)
	}

	attempts := 0
	_, err = retry.Blocking(ctx, w.Backoff(), func() (struct{}, error) {
		attempts += 1
		err := w.post(ctx, u, payload)
		if w.Retries <= attempts {
			err = settle(err)
		}
		return struct{}{}, err
	})
	if err != nil && !errors.Is(err, ErrDeliveryFailed) {
		// backoff is interrupted
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return settle(err)
}

// Deliver posts the event to all URLs, and returns the first error.
func (w *Web) Deliver(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	for _, u := range w.URLs {
		if err := w.deliver(ctx, u, payload); err != nil {
			return err
		}
	}
	return nil
}

func (w *Web) Send(principal string, topic string, message any) {
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	env := Envelope{Principal: principal, Topic: topic, Message: message, SentAt: now()}
	if err := w.Deliver(context.Background(), env); err != nil {
		w.Logger.WithError(err).WithField("topic", topic).Warn("failed to deliver webhook")
	}
}

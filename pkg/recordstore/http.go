package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/sethvargo/go-retry"
)

const backendHTTP = "http"

// HTTPStore talks to the hosted record-storage API.
type HTTPStore struct {
	baseURL     *url.URL
	apiKey      string
	client      *http.Client
	timeout     time.Duration
	maxRetries  uint64
	backoffBase time.Duration
	observer    Observer
}

// Option customises an HTTPStore.
type Option func(*HTTPStore)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPStore) {
		if client != nil {
			s.client = client
		}
	}
}

// WithObserver reports every call to obs.
func WithObserver(obs Observer) Option {
	return func(s *HTTPStore) {
		if obs != nil {
			s.observer = obs
		}
	}
}

// NewHTTPStore builds a client for cfg.BaseURL.
func NewHTTPStore(cfg config.RecordStoreConfig, opts ...Option) (*HTTPStore, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("record store base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse record store url: %w", err)
	}

	s := &HTTPStore{
		baseURL:     base,
		apiKey:      cfg.APIKey,
		client:      &http.Client{},
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		observer:    nopObserver{},
	}
	if s.backoffBase <= 0 {
		s.backoffBase = 100 * time.Millisecond
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *HTTPStore) Fetch(ctx context.Context, table string, params FetchParams) (*Envelope, error) {
	var env Envelope
	err := s.observe("fetch", func() error {
		return s.retrying(ctx, func(ctx context.Context) error {
			env = Envelope{}
			return s.do(ctx, http.MethodPost, s.endpoint(table, "fetch"), params, &env)
		})
	})
	if err != nil {
		return nil, err
	}
	return &env, nil
}

func (s *HTTPStore) Get(ctx context.Context, table string, id int64, fields []string) (*Envelope, error) {
	endpoint := s.endpoint(table, strconv.FormatInt(id, 10))
	if len(fields) > 0 {
		endpoint += "?" + url.Values{"fields": {strings.Join(fields, ",")}}.Encode()
	}

	var env Envelope
	err := s.observe("get", func() error {
		return s.retrying(ctx, func(ctx context.Context) error {
			env = Envelope{}
			err := s.do(ctx, http.MethodGet, endpoint, nil, &env)
			var st *statusError
			if errors.As(err, &st) && st.code == http.StatusNotFound {
				env = Envelope{Success: false, Message: fmt.Sprintf("record %d not found", id)}
				return nil
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// Create is sent once; retrying a write could duplicate records.
func (s *HTTPStore) Create(ctx context.Context, table string, records []Record) (*MutationEnvelope, error) {
	return s.mutate(ctx, "create", http.MethodPost, table, struct {
		Records []Record `json:"records"`
	}{Records: records})
}

func (s *HTTPStore) Update(ctx context.Context, table string, records []Record) (*MutationEnvelope, error) {
	return s.mutate(ctx, "update", http.MethodPatch, table, struct {
		Records []Record `json:"records"`
	}{Records: records})
}

func (s *HTTPStore) Delete(ctx context.Context, table string, ids []int64) (*MutationEnvelope, error) {
	return s.mutate(ctx, "delete", http.MethodDelete, table, struct {
		RecordIDs []int64 `json:"recordIds"`
	}{RecordIDs: ids})
}

func (s *HTTPStore) mutate(ctx context.Context, op, method, table string, body any) (*MutationEnvelope, error) {
	var env MutationEnvelope
	err := s.observe(op, func() error {
		attemptCtx, cancel := s.attemptContext(ctx)
		defer cancel()
		err := s.do(attemptCtx, method, s.endpoint(table, ""), body, &env)
		var st *statusError
		if errors.As(err, &st) {
			return st.err
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &env, nil
}

func (s *HTTPStore) retrying(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.backoffBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := s.attemptContext(ctx)
		defer cancel()

		err := fn(attemptCtx)
		if err == nil {
			return nil
		}
		var st *statusError
		if errors.As(err, &st) {
			if st.retryable() {
				return retry.RetryableError(st.err)
			}
			return st.err
		}
		var de *decodeError
		if errors.As(err, &de) || ctx.Err() != nil {
			return err
		}
		// transport failures, including a per-attempt timeout
		return retry.RetryableError(err)
	})
}

func (s *HTTPStore) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *HTTPStore) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.observer.ObserveRecordStore(backendHTTP, op, time.Since(start), err)
	return err
}

func (s *HTTPStore) endpoint(table, suffix string) string {
	path := s.baseURL.String() + "/tables/" + url.PathEscape(table) + "/records"
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}

func (s *HTTPStore) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{
			code: resp.StatusCode,
			err:  fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &decodeError{err: fmt.Errorf("%s %s: decode response: %w", method, endpoint, err)}
	}
	return nil
}

// decodeError is a 2xx response whose body is not the expected JSON. It is never retried.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

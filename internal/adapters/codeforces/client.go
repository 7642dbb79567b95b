// Package codeforces is a caching client for the Codeforces HTTP API.
//
// Every method first consults the response cache and only calls the upstream
// on a miss. Only successful results are cached.
package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/okian/cfpulse/internal/adapters/cache"
	"github.com/okian/cfpulse/pkg/logger"
	"github.com/okian/cfpulse/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://codeforces.com/api/"
	// DefaultTimeout bounds one upstream call.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodyBytes caps a response body. user.status for an active
	// handle runs to several megabytes.
	DefaultMaxBodyBytes = 64 << 20

	statusOK = "OK"
)

// Outcome labels for upstream metrics.
const (
	outcomeOK          = "ok"
	outcomeRejected    = "rejected"
	outcomeUnavailable = "unavailable"
)

// envelope is the upstream response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result"`
	Comment string          `json:"comment"`
}

// Client calls the upstream API through a response cache.
type Client struct {
	baseURL string
	timeout time.Duration
	maxBody int64
	http    *http.Client
	store   cache.Store
	logger  logger.Logger
	group   singleflight.Group
}

// New creates a Client. Without WithStore it caches in memory with the
// default TTL.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		maxBody: DefaultMaxBodyBytes,
		http:    &http.Client{},
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = cache.NewMemory()
	}
	return c
}

// Store returns the response cache in use.
func (c *Client) Store() cache.Store {
	return c.store
}

// call returns the result payload of method, from the cache when possible.
// Concurrent misses on one key share a single upstream request; each caller
// still gives up when its own ctx ends.
func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	key := cache.Key(method, params)

	v, found, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn(ctx, "cache get failed, treating as miss",
			logger.String("method", method), logger.Error(err))
	case found:
		metrics.RecordCacheHit(method)
		return v, nil
	}
	metrics.RecordCacheMiss(method)

	// The shared fetch must not die with whichever caller started it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(fetchCtx, method, key, params)
	})

	select {
	case <-ctx.Done():
		return nil, &UnavailableError{Method: method, Err: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			metrics.RecordUpstreamShared(method)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	}
}

// fetch performs one upstream request and caches a successful result.
func (c *Client) fetch(ctx context.Context, method, key string, params url.Values) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	callID := uuid.NewString()
	start := time.Now()

	result, status, err := c.do(ctx, method, params)

	latency := time.Since(start)
	metrics.RecordUpstreamLatency(method, float64(latency.Milliseconds()))

	var rejected *RejectedError
	switch {
	case errors.As(err, &rejected):
		metrics.RecordUpstreamRequest(method, outcomeRejected)
		c.logger.Debug(ctx, "upstream rejected",
			logger.String("call_id", callID),
			logger.String("method", method),
			logger.Int("status", status),
			logger.String("comment", rejected.Comment),
			logger.Duration("latency", latency))
		return nil, err
	case err != nil:
		metrics.RecordUpstreamRequest(method, outcomeUnavailable)
		c.logger.Debug(ctx, "upstream unavailable",
			logger.String("call_id", callID),
			logger.String("method", method),
			logger.Int("status", status),
			logger.Error(err),
			logger.Duration("latency", latency))
		return nil, err
	}

	metrics.RecordUpstreamRequest(method, outcomeOK)
	c.logger.Debug(ctx, "upstream ok",
		logger.String("call_id", callID),
		logger.String("method", method),
		logger.Int("status", status),
		logger.Int("bytes", len(result)),
		logger.Duration("latency", latency))

	if err := c.store.Put(ctx, key, result); err != nil {
		metrics.RecordCacheWrite(method, "error")
		c.logger.Warn(ctx, "cache put failed",
			logger.String("call_id", callID),
			logger.String("method", method),
			logger.Error(err))
	} else {
		metrics.RecordCacheWrite(method, "ok")
	}
	if l, ok := c.store.(interface{ Len() int }); ok {
		metrics.UpdateCacheEntries(l.Len())
	}
	return result, nil
}

// do issues GET <baseURL><method>?<params> and unwraps the envelope.
func (c *Client) do(ctx context.Context, method string, params url.Values) (json.RawMessage, int, error) {
	u := c.baseURL + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, &UnavailableError{Method: method, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &UnavailableError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, resp.StatusCode, &UnavailableError{Method: method, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		return nil, resp.StatusCode, &UnavailableError{Method: method, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, c.maxBody)}
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The API answers bad arguments with 400 and a FAILED envelope.
		if decodeErr == nil && env.Status != "" && env.Status != statusOK &&
			resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, resp.StatusCode, &RejectedError{Method: method, Comment: env.Comment}
		}
		return nil, resp.StatusCode, &UnavailableError{Method: method, StatusCode: resp.StatusCode}
	}
	if decodeErr != nil {
		return nil, resp.StatusCode, &UnavailableError{Method: method, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", decodeErr)}
	}
	if env.Status != statusOK {
		return nil, resp.StatusCode, &RejectedError{Method: method, Comment: env.Comment}
	}
	if len(env.Result) == 0 {
		return json.RawMessage("null"), resp.StatusCode, nil
	}
	return env.Result, resp.StatusCode, nil
}

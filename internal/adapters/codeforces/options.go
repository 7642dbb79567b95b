package codeforces

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/cfpulse/internal/adapters/cache"
	"github.com/okian/cfpulse/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root; method names are appended to it.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base == "" {
			return
		}
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		c.baseURL = base
	}
}

// WithTimeout bounds a single upstream call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodyBytes caps the size of a response body.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithHTTPClient replaces the transport. Its Timeout is overridden by WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithStore sets the response cache.
func WithStore(s cache.Store) Option {
	return func(c *Client) {
		if s != nil {
			c.store = s
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

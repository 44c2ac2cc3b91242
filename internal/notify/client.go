// Package notify sends extracted fields to the downstream notification endpoint.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/mailrelay/internal/auth"
	"github.com/loykin/mailrelay/internal/common"
	"github.com/loykin/mailrelay/internal/httpc"
	"github.com/loykin/mailrelay/internal/retry"
)

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected notification status")

// StatusError reports a response outside the success set.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("notification endpoint returned status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Header is a static request header.
type Header struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Value string `mapstructure:"value" yaml:"value"`
}

// Options configures a Client.
type Options struct {
	URL    string
	Method string
	// SuccessStatus defaults to 202 Accepted.
	SuccessStatus []int
	Headers       []Header
	Auth          auth.Method
	Client        httpc.Config
	Retry         *retry.Config
}

// Client posts triggers to one endpoint.
type Client struct {
	opts    Options
	http    *resty.Client
	success map[int]struct{}
}

// Response is the outcome of a successful Send.
type Response struct {
	StatusCode int
	Body       string
	Attempts   int
	Duration   time.Duration
}

// New validates opts and builds the HTTP client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("notify: url is required")
	}
	opts.Method = strings.ToUpper(strings.TrimSpace(opts.Method))
	if opts.Method == "" {
		opts.Method = http.MethodPost
	}
	switch opts.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, fmt.Errorf("notify: unsupported method: %s", opts.Method)
	}
	if opts.Client.Timeout <= 0 {
		opts.Client.Timeout = 10 * time.Second
	}
	hc, err := opts.Client.New()
	if err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	success := map[int]struct{}{}
	for _, s := range opts.SuccessStatus {
		success[s] = struct{}{}
	}
	if len(success) == 0 {
		success[http.StatusAccepted] = struct{}{}
	}
	return &Client{opts: opts, http: hc, success: success}, nil
}

// Send posts the trigger, retrying transport errors and retryable statuses.
func (c *Client) Send(ctx context.Context, t Trigger) (*Response, error) {
	logger := common.GetLogger().WithComponent("notify").WithRequest(c.opts.Method, c.opts.URL)

	rc := c.opts.Retry
	if rc == nil {
		rc = retry.DefaultRetryConfig()
	}
	cfg := *rc
	cfg.Retryable = func(err error) bool {
		var se *StatusError
		return errors.As(err, &se) && se.Retryable()
	}

	start := time.Now()
	var out *Response
	attempts := 0
	err := retry.Do(ctx, &cfg, "notify", func(ctx context.Context) error {
		attempts++
		resp, err := c.sendOnce(ctx, t)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		logger.Error("notification failed", "error", err, "attempts", attempts)
		return nil, err
	}
	out.Attempts = attempts
	out.Duration = time.Since(start)
	logger.Info("notification sent", "status_code", out.StatusCode, "attempts", attempts, "duration", out.Duration)
	return out, nil
}

func (c *Client) sendOnce(ctx context.Context, t Trigger) (*Response, error) {
	req := c.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(t)
	for _, h := range c.opts.Headers {
		if strings.TrimSpace(h.Name) != "" {
			req.SetHeader(h.Name, h.Value)
		}
	}
	if c.opts.Auth != nil {
		name, value, err := c.opts.Auth.Acquire(ctx)
		if err != nil {
			return nil, retry.Permanent(fmt.Errorf("notify auth: %w", err))
		}
		if req.Header.Get(name) == "" {
			req.SetHeader(name, value)
		}
	}

	resp, err := req.Execute(c.opts.Method, c.opts.URL)
	if err != nil {
		return nil, err
	}
	if _, ok := c.success[resp.StatusCode()]; !ok {
		common.GetLogger().WithComponent("notify").Debug("unexpected response", "status_code", resp.StatusCode(), "body", common.MaskSensitiveData(resp.String()))
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.String()}, nil
}

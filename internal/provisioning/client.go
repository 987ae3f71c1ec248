package provisioning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	devicesPath     = "Devices"
	devicesIncludes = "Sensors,ConnectionString,Types,SensorsTypes"

	defaultRetries   = 3
	defaultRetryStep = time.Second
	maxBodyBytes     = 1 << 20
)

// ErrStatus is returned for a non-2xx provisioning response.
var ErrStatus = errors.New("provisioning: unexpected status")

// Client queries the provisioning service for this node's device record.
type Client struct {
	endpoint  string
	sasToken  string
	http      *http.Client
	logger    *zap.Logger
	retries   uint
	retryStep time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithRetry sets the number of attempts and the linear backoff step.
func WithRetry(attempts uint, step time.Duration) Option {
	return func(cl *Client) {
		cl.retries = attempts
		cl.retryStep = step
	}
}

// NewClient returns a client for the given management endpoint.
// The SAS token is sent verbatim as the Authorization header.
func NewClient(endpoint, sasToken string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	c := &Client{
		endpoint:  endpoint,
		sasToken:  sasToken,
		http:      &http.Client{Timeout: timeout},
		logger:    logger.Named("provisioning"),
		retries:   defaultRetries,
		retryStep: defaultRetryStep,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// DeviceURL returns the lookup URL for a hardware ID.
func (c *Client) DeviceURL(hardwareID string) string {
	q := url.Values{}
	q.Set("hardwareIds", hardwareID)
	return c.endpoint + devicesPath + "?" + q.Encode() + "&includes=" + devicesIncludes
}

// FetchDevice retrieves and parses the device record for hardwareID.
// Throttling (429) and server errors are retried with linear backoff;
// other failures, including parse errors, are returned immediately.
func (c *Client) FetchDevice(ctx context.Context, hardwareID string) (*Device, error) {
	target := c.DeviceURL(hardwareID)

	op := func() (*Device, error) {
		body, err := c.get(ctx, target)
		if err != nil {
			return nil, err
		}
		dev, err := Parse(body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return dev, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(&linearBackOff{step: c.retryStep}),
		backoff.WithMaxTries(c.retries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Warn("device lookup failed, retrying", zap.Error(err), zap.Duration("wait", wait))
		}),
	)
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", c.sasToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get devices: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}
	return body, nil
}

// linearBackOff waits step, 2*step, 3*step, ... between attempts.
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

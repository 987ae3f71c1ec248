// Package transport sends encoded telemetry payloads to the ingestion
// endpoint.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sender delivers one payload to a destination. Delivery is fire-and-forget
// from the caller's point of view: errors are reported but not retried.
type Sender interface {
	Send(ctx context.Context, destination string, payload []byte) error
}

// ErrStatus is matched by errors for non-2xx responses.
var ErrStatus = errors.New("transport: unexpected status")

// HTTPSender POSTs payloads as JSON.
type HTTPSender struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewHTTPSender creates an HTTPSender. A zero timeout means no per-send
// deadline beyond the caller's context.
func NewHTTPSender(timeout time.Duration, logger *zap.Logger) *HTTPSender {
	return &HTTPSender{
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger.Named("http-sender"),
	}
}

// Send POSTs payload to destination.
func (s *HTTPSender) Send(ctx context.Context, destination string, payload []byte) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telemetry: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	s.logger.Debug("telemetry sent", zap.Int("bytes", len(payload)), zap.Int("status", resp.StatusCode))
	return nil
}

// SentMessage records a send call.
type SentMessage struct {
	Destination string
	Payload     []byte
}

// FakeSender is a test double that records sends.
type FakeSender struct {
	mu       sync.Mutex
	messages []SentMessage

	// SendError, if set, is returned by Send
	SendError error
}

// NewFakeSender creates a FakeSender.
func NewFakeSender() *FakeSender {
	return &FakeSender{}
}

// Send records the message, even when SendError is set.
func (f *FakeSender) Send(_ context.Context, destination string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, SentMessage{
		Destination: destination,
		Payload:     append([]byte(nil), payload...),
	})
	return f.SendError
}

// Messages returns a copy of all recorded sends.
func (f *FakeSender) Messages() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

// Clear removes all recorded sends.
func (f *FakeSender) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
}

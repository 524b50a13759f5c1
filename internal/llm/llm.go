package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Client is the boundary to an external text-completion provider.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrTimeout means the provider did not answer within the deadline.
	ErrTimeout = errors.New("llm timeout")
	// ErrProvider means the provider answered with an error.
	ErrProvider = errors.New("llm provider error")
	// ErrMalformedResponse means the provider answered but the body was unusable.
	ErrMalformedResponse = errors.New("llm malformed response")
	// ErrNotImplemented is returned by the placeholder client.
	ErrNotImplemented = errors.New("LLM not implemented")
)

// ProviderError is an HTTP-level failure reported by a provider.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s http status %d: %s", e.Provider, e.Status, e.Message)
}

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// Retryable reports whether the provider signalled a transient condition.
func (e *ProviderError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// TransportError classifies a failed HTTP round trip.
func TransportError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s request: %v", ErrTimeout, provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s request: %v", ErrTimeout, provider, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s request: %v", ErrProvider, provider, err)
}

// Malformed wraps a response decoding problem.
func Malformed(provider, detail string) error {
	return fmt.Errorf("%w: %s %s", ErrMalformedResponse, provider, detail)
}

// TrimBody shortens a provider error body for messages.
func TrimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

func (PlaceholderClient) Complete(context.Context, string) (string, error) {
	return "", ErrNotImplemented
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies a collaborator failure so the reply layer can map
// every case to its own user-facing message.
type ErrorKind string

const (
	ErrKindQuota         ErrorKind = "quota_exceeded"
	ErrKindConnection    ErrorKind = "connection_failed"
	ErrKindContentPolicy ErrorKind = "content_policy"
	ErrKindAPI           ErrorKind = "api_error"
	ErrKindUnknown       ErrorKind = "unknown"
)

// Error is a classified failure from an LLM provider call.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e == nil {
		return "llm: request failed"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "request failed"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm %s (http %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("llm %s: %s", e.Kind, msg)
}

// KindOf returns the classification of err. Transport-level failures that
// never produced an API response count as connection failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrKindUnknown
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrKindConnection
	}
	return ErrKindUnknown
}

package chatmodel

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Error classes. Use errors.Is to test an error for its class,
// the message of a classified error keeps the original cause.
var (
	// ErrConnection is returned when a tool server transport could not be set up.
	ErrConnection = errors.New("connection error")
	// ErrProtocol is returned on malformed or unexpected responses from a tool server.
	ErrProtocol = errors.New("protocol error")
	// ErrInvocation is returned when a tool reported a failure,
	// or the transport broke during the call.
	ErrInvocation = errors.New("invocation error")
	// ErrUnknownTool is returned when a tool name is not in the routing table.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrRouting is returned when the routing table points to a closed connection.
	ErrRouting = errors.New("routing error")
	// ErrArgumentParse is returned on malformed tool call arguments from the model.
	ErrArgumentParse = errors.New("argument parse error")
	// ErrProvider is returned when the LLM backend call failed.
	ErrProvider = errors.New("provider error")
	// ErrTimeout is returned when a bounded operation exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrInvalidChatContext is returned when the context has no chat.
	ErrInvalidChatContext = errors.New("invalid chat context")
)

// Classify wraps err with the message and marks it with the class.
// Deadline errors are additionally marked as ErrTimeout.
// Returns nil if err is nil.
func Classify(err error, class error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	res := errors.Mark(errors.Wrapf(err, format, args...), class)
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(res, ErrTimeout) {
		res = errors.Mark(res, ErrTimeout)
	}
	return res
}

// NewClassified returns a new error with the message, marked with the class.
func NewClassified(class error, format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), class)
}

// IsTimeout returns true if the error is a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

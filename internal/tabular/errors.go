package tabular

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTableNotFound = errors.New("sheet not found")
	ErrInvalidAction = errors.New("invalid action")
	ErrRowNotFound   = errors.New("row not found")
	ErrInvalidID     = errors.New("invalid id")
	ErrNoFields      = errors.New("no fields to write")
)

// Kind is the coarse class of a failure, used to pick a response code or a
// user-facing message.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindTransport
	KindValidation
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Classified is implemented by errors that know their own Kind.
type Classified interface {
	Kind() Kind
}

// KindOf classifies err; nil yields KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var c Classified
	if errors.As(err, &c) {
		return c.Kind()
	}
	switch {
	case errors.Is(err, ErrTableNotFound), errors.Is(err, ErrRowNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidAction), errors.Is(err, ErrInvalidID), errors.Is(err, ErrNoFields):
		return KindValidation
	}
	return KindUnknown
}

// TransportError is an HTTP or network level failure talking to the endpoint.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP error! status: %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Kind() Kind { return KindTransport }

// RemoteError is any other failure reported by the store, message verbatim.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Kind() Kind { return KindRemote }

// ErrorFromMessage maps an envelope message back onto the taxonomy.
func ErrorFromMessage(msg string) error {
	switch {
	case msg == MsgSheetNotFound:
		return ErrTableNotFound
	case msg == MsgInvalidAction:
		return ErrInvalidAction
	case strings.HasPrefix(msg, ErrRowNotFound.Error()):
		return fmt.Errorf("%w%s", ErrRowNotFound, strings.TrimPrefix(msg, ErrRowNotFound.Error()))
	case strings.HasPrefix(msg, ErrInvalidID.Error()):
		return fmt.Errorf("%w%s", ErrInvalidID, strings.TrimPrefix(msg, ErrInvalidID.Error()))
	case msg == ErrNoFields.Error():
		return ErrNoFields
	}
	if msg == "" {
		msg = "unknown store error"
	}
	return &RemoteError{Message: msg}
}

// MessageFor is the envelope message for a backend error.
func MessageFor(err error) string {
	switch {
	case errors.Is(err, ErrTableNotFound):
		return MsgSheetNotFound
	case errors.Is(err, ErrInvalidAction):
		return MsgInvalidAction
	}
	return err.Error()
}

// Package protocol binds the core's operations (sink/source lifecycle,
// stream lifecycle and request flow, volume, modules, autoload,
// subscriptions) to an abstract command/event model that every concrete
// wire transport implements against, without itself speaking any wire
// format. A transport module wraps one *Dispatcher and translates its
// own framing to/from the methods here.
package protocol

import "github.com/pulsed/pulsed/internal/errors"

// ErrorCode is the client-visible error taxonomy: a transport encodes
// one of these on the wire whenever a Dispatcher method returns a
// non-nil error.
type ErrorCode int

const (
	ErrAccess ErrorCode = iota
	ErrCommand
	ErrInvalid
	ErrExist
	ErrNoEntity
	ErrConnectionRefused
	ErrProtocol
	ErrTimeout
	ErrNoAuthKey
	ErrInternal
	ErrConnectionTerminated
	ErrKill
	ErrInitFailed
	ErrInvalidServer
)

func (c ErrorCode) String() string {
	switch c {
	case ErrAccess:
 return "access"
	case ErrCommand:
 return "command"
	case ErrInvalid:
 return "invalid"
	case ErrExist:
 return "exist"
	case ErrNoEntity:
 return "no-entity"
	case ErrConnectionRefused:
 return "connection-refused"
	case ErrProtocol:
 return "protocol"
	case ErrTimeout:
 return "timeout"
	case ErrNoAuthKey:
 return "no-auth-key"
	case ErrInternal:
 return "internal"
	case ErrConnectionTerminated:
 return "connection-terminated"
	case ErrKill:
 return "kill"
	case ErrInitFailed:
 return "init-failed"
	case ErrInvalidServer:
 return "invalid-server"
	default:
 return "internal"
	}
}

// MapError classifies err into the wire taxonomy by consulting its
// internal/errors category, defaulting to ErrInternal for plain errors
// that never went through an errors.ErrorBuilder (kind 2 errors
// are always built that way; anything else reaching this function is a
// programming slip, not a client-visible distinction worth losing).
func MapError(err error) ErrorCode {
	if err == nil {
 return -1
	}
	switch errors.Category(err) {
	case errors.CategoryAccess:
 return ErrAccess
	case errors.CategoryCommand:
 return ErrCommand
	case errors.CategoryInvalid:
 return ErrInvalid
	case errors.CategoryExist:
 return ErrExist
	case errors.CategoryNotFound:
 return ErrNoEntity
	case errors.CategoryProtocol:
 return ErrProtocol
	case errors.CategoryTimeout:
 return ErrTimeout
	case errors.CategoryKill:
 return ErrKill
	case errors.CategoryInitFailed:
 return ErrInitFailed
	case errors.CategoryState, errors.CategoryLimit:
 return ErrInvalid
	default:
 return ErrInternal
	}
}

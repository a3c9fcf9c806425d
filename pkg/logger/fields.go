package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field represents a structured log field.
type Field = zap.Field

// String constructs a field with a string value.
func String(key string, val string) Field {
	return zap.String(key, val)
}

// Int constructs a field with an integer value.
func Int(key string, val int) Field {
	return zap.Int(key, val)
}

// Int64 constructs a field with a 64-bit integer value.
func Int64(key string, val int64) Field {
	return zap.Int64(key, val)
}

// Bool constructs a field with a boolean value.
func Bool(key string, val bool) Field {
	return zap.Bool(key, val)
}

// Duration constructs a field with a time.Duration value.
func Duration(key string, val time.Duration) Field {
	return zap.Duration(key, val)
}

// Time constructs a field with a time.Time value.
func Time(key string, val time.Time) Field {
	return zap.Time(key, val)
}

// Error constructs a field with an error value.
func Error(err error) Field {
	return zap.Error(err)
}

// Any constructs a field with any value using reflection.
func Any(key string, val interface{}) Field {
	return zap.Any(key, val)
}

// Common field constructors for session context.

// UserID constructs a user_id field.
func UserID(id string) Field {
	return String("user_id", id)
}

// Endpoint constructs an endpoint field.
func Endpoint(path string) Field {
	return String("endpoint", path)
}

// Method constructs an HTTP method field.
func Method(method string) Field {
	return String("method", method)
}

// Status constructs an HTTP status code field.
func Status(code int) Field {
	return Int("status", code)
}

// State constructs a session state field.
func State(state string) Field {
	return String("state", state)
}

// Component constructs a component field for identifying log source.
func Component(name string) Field {
	return String("component", name)
}

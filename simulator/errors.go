package simulator

import "fmt"

// ErrorKind classifies simulation errors
type ErrorKind int

const (
	KindConfiguration ErrorKind = iota + 1 // Rejected input configuration
	KindCapacity                           // Cache constructed with a non-positive capacity
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "invalid config"
	case KindCapacity:
		return "invalid capacity"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// SimError is a custom error type for simulation errors
type SimError struct {
	Kind    ErrorKind
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("simulation error: %s: %s", e.Kind, e.Message)
}

// Is matches a bare sentinel (no message) of the same kind, so
// errors.Is(err, ErrConfiguration) holds for every configuration error.
func (e SimError) Is(target error) bool {
	t, ok := target.(SimError)
	return ok && t.Message == "" && t.Kind == e.Kind
}

var (
	// ErrConfiguration matches every configuration error
	ErrConfiguration = SimError{Kind: KindConfiguration}
	// ErrCapacity matches every capacity error
	ErrCapacity = SimError{Kind: KindCapacity}
)

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(msg string) error {
	return SimError{Kind: KindConfiguration, Message: msg}
}

// ErrInvalidCapacity creates an error for a cache built with capacity <= 0
func ErrInvalidCapacity(capacity int) error {
	return SimError{Kind: KindCapacity, Message: fmt.Sprintf("cache capacity must be > 0, got %d", capacity)}
}

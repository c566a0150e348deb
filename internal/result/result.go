// Package result defines the error taxonomy shared by every govarnam
// entry point. Callers classify failures with errors.Is against the
// sentinel values below; the concrete message carries the detail.
package result

import (
	"errors"
	"fmt"
)

var (
	// ErrArgs reports nil or out-of-range arguments.
	ErrArgs = errors.New("invalid arguments")

	// ErrEncoding reports input that is not valid UTF-8.
	ErrEncoding = errors.New("invalid encoding")

	// ErrStorage reports an underlying file or schema failure.
	ErrStorage = errors.New("storage failure")

	// ErrDuplicateToken reports a unique-constraint violation on a
	// symbol insert.
	ErrDuplicateToken = errors.New("duplicate token")

	// ErrLearnRejected reports a word that failed the learner's
	// sanity checks. The message names the offending input or rule.
	ErrLearnRejected = errors.New("learn rejected")

	// ErrInvalidConfig reports an unknown option or a bad value.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPartialRendering is returned by a custom renderer to hand
	// the token back to the default rules.
	ErrPartialRendering = errors.New("partial rendering")

	// ErrNotFound reports an empty lookup. Mostly internal; surfaced
	// as an empty result rather than an error.
	ErrNotFound = errors.New("not found")
)

// Argsf wraps ErrArgs with a formatted message.
func Argsf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrArgs, args)...)
}

// Storagef wraps ErrStorage with a formatted message.
func Storagef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrStorage, args)...)
}

// Learnf wraps ErrLearnRejected with a formatted message.
func Learnf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrLearnRejected, args)...)
}

// Encodingf wraps ErrEncoding with a formatted message.
func Encodingf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrEncoding, args)...)
}

func prepend(err error, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, err)
	return append(out, args...)
}

// Package imgerr defines the failure taxonomy shared by every pipeline stage.
package imgerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrCorruptData         = errors.New("corrupt data")
	ErrInvalidDimensions   = errors.New("invalid dimensions")
	ErrInvalidRequirements = errors.New("invalid requirements")
	ErrSizeUnattainable    = errors.New("size unattainable")
	ErrInternalEncoding    = errors.New("internal encoding failure")
	ErrCanceled            = errors.New("canceled")
)

// Kind classifies a pipeline failure
type Kind int

const (
	KindNone Kind = iota
	KindUnsupportedFormat
	KindCorruptData
	KindInvalidDimensions
	KindInvalidRequirements
	KindSizeUnattainable
	KindInternalEncoding
	KindCanceled
	KindUnknown
)

var kindNames = map[Kind]string{
	KindNone:                "",
	KindUnsupportedFormat:   "UnsupportedFormat",
	KindCorruptData:         "CorruptData",
	KindInvalidDimensions:   "InvalidDimensions",
	KindInvalidRequirements: "InvalidRequirements",
	KindSizeUnattainable:    "SizeUnattainable",
	KindInternalEncoding:    "InternalEncodingFailure",
	KindCanceled:            "Canceled",
	KindUnknown:             "Unknown",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Wrap builds an error message that carries stage context and tags it with
// marker so KindOf can classify it later. marker should be one of the
// exported sentinels above.
func Wrap(marker error, stage, message string, err error) error {
	if marker == nil {
		marker = ErrInternalEncoding
	}
	detail := buildDetail(stage, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Wrapf is Wrap with a formatted message and no cause
func Wrapf(marker error, stage, format string, args ...any) error {
	return Wrap(marker, stage, fmt.Sprintf(format, args...), nil)
}

// KindOf maps err onto the taxonomy. Unrecognized errors are KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrCorruptData):
		return KindCorruptData
	case errors.Is(err, ErrInvalidDimensions):
		return KindInvalidDimensions
	case errors.Is(err, ErrInvalidRequirements):
		return KindInvalidRequirements
	case errors.Is(err, ErrSizeUnattainable):
		return KindSizeUnattainable
	case errors.Is(err, ErrInternalEncoding):
		return KindInternalEncoding
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// UnattainableError reports that no encoding landed inside the size window.
// BestBytes is the size of the candidate closest to the window.
type UnattainableError struct {
	Format    string
	BestBytes int
	MinBytes  int
	MaxBytes  int
	Attempts  int
}

func (e *UnattainableError) Error() string {
	return fmt.Sprintf("%s: %s output of %d bytes is outside [%d, %d] after %d attempts",
		ErrSizeUnattainable, e.Format, e.BestBytes, e.MinBytes, e.MaxBytes, e.Attempts)
}

func (e *UnattainableError) Is(target error) bool {
	return target == ErrSizeUnattainable
}

// BestBytes extracts the best-effort size from a SizeUnattainable error
func BestBytes(err error) (int, bool) {
	var ue *UnattainableError
	if errors.As(err, &ue) {
		return ue.BestBytes, true
	}
	return 0, false
}

func buildDetail(stage, message string) string {
	parts := make([]string, 0, 2)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}

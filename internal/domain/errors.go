// Package domain holds the value objects shared by the CVM and B3
// pipelines: year ranges, document families, instrument classes, and the
// path/filename validators that construct them.
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way the pipeline propagates it: structurally,
// never as a bare string a caller has to pattern-match.
type Kind int

const (
	KindInvalidFirstYear Kind = iota
	KindInvalidLastYear
	KindInvalidDocName
	KindInvalidAssetsName
	KindEmptyAssetList
	KindInvalidDestinationPath
	KindPathIsNotDirectory
	KindPathPermissionError
	KindSecurityError
	KindNetworkError
	KindTimeoutError
	KindDiskFullError
	KindCorruptedZipError
	KindExtractionError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidFirstYear:
		return "InvalidFirstYear"
	case KindInvalidLastYear:
		return "InvalidLastYear"
	case KindInvalidDocName:
		return "InvalidDocName"
	case KindInvalidAssetsName:
		return "InvalidAssetsName"
	case KindEmptyAssetList:
		return "EmptyAssetList"
	case KindInvalidDestinationPath:
		return "InvalidDestinationPath"
	case KindPathIsNotDirectory:
		return "PathIsNotDirectory"
	case KindPathPermissionError:
		return "PathPermissionError"
	case KindSecurityError:
		return "SecurityError"
	case KindNetworkError:
		return "NetworkError"
	case KindTimeoutError:
		return "TimeoutError"
	case KindDiskFullError:
		return "DiskFullError"
	case KindCorruptedZipError:
		return "CorruptedZipError"
	case KindExtractionError:
		return "ExtractionError"
	default:
		return "UnknownError"
	}
}

// Error is the structured error type surfaced across package boundaries.
// Callers discriminate on Kind via errors.As, not on Error()'s text.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error carrying cause as its Unwrap target.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

package bigram

import (
	"errors"
	"fmt"
)

// Reason classifies a DomainError.
type Reason int

const (
	// ReasonUnknownSymbol means a symbol (or symbol index) is not part of the vocabulary.
	ReasonUnknownSymbol Reason = iota + 1
	// ReasonEmptyCorpus means a corpus-level operation received no words.
	ReasonEmptyCorpus
	// ReasonNoObservedContinuations means a row of the count matrix sums to zero
	// after smoothing, so it cannot be normalized.
	ReasonNoObservedContinuations
	// ReasonMalformedDistribution means a probability row is not a valid
	// categorical distribution.
	ReasonMalformedDistribution
	// ReasonVocabularyMismatch means the probability matrix and the vocabulary
	// do not describe the same index space.
	ReasonVocabularyMismatch
	// ReasonInvalidArgument covers malformed caller input such as a negative
	// smoothing constant or a non-square matrix.
	ReasonInvalidArgument
)

func (r Reason) String() string {
	switch r {
	case ReasonUnknownSymbol:
		return "unknown symbol"
	case ReasonEmptyCorpus:
		return "empty corpus"
	case ReasonNoObservedContinuations:
		return "unsupported starting symbol with no observed continuations"
	case ReasonMalformedDistribution:
		return "malformed distribution"
	case ReasonVocabularyMismatch:
		return "vocabulary/matrix mismatch"
	case ReasonInvalidArgument:
		return "invalid argument"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// DomainError is the single error kind returned by the bigram operations.
// Errors never leave the vocabulary or any matrix modified; the caller may
// retry with corrected inputs.
type DomainError struct {
	Reason Reason
	Detail string
}

func (e *DomainError) Error() string {
	if e.Detail == "" {
		return "bigram: " + e.Reason.String()
	}
	return "bigram: " + e.Reason.String() + ": " + e.Detail
}

// Is reports whether target is a DomainError with the same reason, so that
// errors.Is(err, ErrUnknownSymbol) matches regardless of Detail.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == e.Reason
}

// Sentinels for use with errors.Is.
var (
	ErrUnknownSymbol           = &DomainError{Reason: ReasonUnknownSymbol}
	ErrEmptyCorpus             = &DomainError{Reason: ReasonEmptyCorpus}
	ErrNoObservedContinuations = &DomainError{Reason: ReasonNoObservedContinuations}
	ErrMalformedDistribution   = &DomainError{Reason: ReasonMalformedDistribution}
	ErrVocabularyMismatch      = &DomainError{Reason: ReasonVocabularyMismatch}
	ErrInvalidArgument         = &DomainError{Reason: ReasonInvalidArgument}
)

func domainErrorf(reason Reason, format string, args ...any) error {
	return &DomainError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the Reason of err, or 0 if err is not a DomainError.
func ReasonOf(err error) Reason {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Reason
	}
	return 0
}

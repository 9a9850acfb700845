package xbrl

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument means no root <xbrl> element was present.
	ErrEmptyDocument = errors.New("the xbrl file is empty")
	// ErrContextParsing means a context carried dates that could not be read.
	ErrContextParsing = errors.New("problem getting contexts")
	// ErrNoContextMatch means no context satisfied a period selector.
	ErrNoContextMatch = errors.New("no context id matched")
	// ErrValueExtraction is returned by strict extraction on the first bad fact.
	ErrValueExtraction = errors.New("value extraction error")
	// ErrInvalidSelector means a period selector string was not understood.
	ErrInvalidSelector = errors.New("invalid context selector")
	// ErrUnknownConcept means a requested field is not in the concept table.
	ErrUnknownConcept = errors.New("unknown concept")
)

// ValueExtractionError describes one fact that could not be converted.
type ValueExtractionError struct {
	Concept    string
	ContextRef string
	Text       string
	Reason     string
	Err        error
}

func (e *ValueExtractionError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrValueExtraction, e.Concept, e.Reason)
	if e.ContextRef != "" {
		msg += fmt.Sprintf(" (context %s)", e.ContextRef)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValueExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValueExtraction}
	}
	return []error{ErrValueExtraction, e.Err}
}

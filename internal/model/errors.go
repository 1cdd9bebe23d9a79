package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField marks a corpus record without a url or content field
	ErrMissingField = errors.New("missing required field")

	// ErrEmptyContent marks a record whose content is empty after cleaning
	ErrEmptyContent = errors.New("empty content after cleaning")

	// ErrInvalidK is returned when a query asks for a non-positive number of results
	ErrInvalidK = errors.New("k must be a positive integer")

	// ErrDimensionMismatch is returned when the embedder and the persisted store disagree
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrSchemaViolation marks structured output that does not satisfy the schema
	ErrSchemaViolation = errors.New("structured output violates schema")

	// ErrNoChoices is returned when a provider answers without any content
	ErrNoChoices = errors.New("no response content")

	// ErrSourceNotInContext is returned in strict-sources mode for a cited URL absent from the context
	ErrSourceNotInContext = errors.New("cited source not present in context")

	// ErrNotReady is returned when a question arrives before startup finished
	ErrNotReady = errors.New("service not ready")

	// ErrEmptyQuestion is returned for blank questions
	ErrEmptyQuestion = errors.New("question must not be empty")
)

// PreprocessError describes a corpus record that was rejected.
// It is always recovered locally: the record is skipped and ingestion continues.
type PreprocessError struct {
	URL    string
	Reason error
}

func (e *PreprocessError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("preprocess: %v", e.Reason)
	}
	return fmt.Sprintf("preprocess %s: %v", e.URL, e.Reason)
}

func (e *PreprocessError) Unwrap() error {
	return e.Reason
}

// IndexError wraps persistence and embedding failures raised by the index
type IndexError struct {
	Op  string // open, add, query, reset, embed
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// GenerationError wraps any failure to obtain a valid structured answer
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("generation: %v", e.Err)
	}
	return fmt.Sprintf("generation (%s): %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

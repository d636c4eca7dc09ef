// Package errors defines the typed error kinds raised across the research
// pipeline. Each kind is a concrete struct carrying the context a caller
// needs to react, rather than a sentinel value, so that callers can recover
// structured fields via errors.As.
package errors

import (
	"fmt"
	"time"
)

// LlmTransportError wraps a network or provider-side failure calling the
// LLM client (timeouts, non-2xx responses, connection resets).
type LlmTransportError struct {
	Provider  string
	Operation string
	Message   string
	Err       error
	Timestamp time.Time
}

func (e *LlmTransportError) Error() string {
	return fmt.Sprintf("llm transport [%s] %s: %s: %v", e.Provider, e.Operation, e.Message, e.Err)
}

func (e *LlmTransportError) Unwrap() error { return e.Err }

func NewLlmTransportError(provider, operation, message string, err error) *LlmTransportError {
	return &LlmTransportError{Provider: provider, Operation: operation, Message: message, Err: err, Timestamp: time.Now()}
}

// LlmSchemaError indicates the LLM's structured output didn't decode into
// the requested schema's type. The call is not retried.
type LlmSchemaError struct {
	Provider string
	Schema   string
	Message  string
	Raw      string
	Err      error
}

func (e *LlmSchemaError) Error() string {
	return fmt.Sprintf("llm schema [%s] against %s: %s: %v", e.Provider, e.Schema, e.Message, e.Err)
}

func (e *LlmSchemaError) Unwrap() error { return e.Err }

func NewLlmSchemaError(provider, schema, message, raw string, err error) *LlmSchemaError {
	return &LlmSchemaError{Provider: provider, Schema: schema, Message: message, Raw: raw, Err: err}
}

// AdapterTransportError wraps a network-level failure in a source adapter's
// upstream fetch (after the http client's own retry budget is exhausted).
type AdapterTransportError struct {
	Adapter   string
	URL       string
	Message   string
	Err       error
	Timestamp time.Time
}

func (e *AdapterTransportError) Error() string {
	return fmt.Sprintf("adapter transport [%s] %s: %s: %v", e.Adapter, e.URL, e.Message, e.Err)
}

func (e *AdapterTransportError) Unwrap() error { return e.Err }

func NewAdapterTransportError(adapter, url, message string, err error) *AdapterTransportError {
	return &AdapterTransportError{Adapter: adapter, URL: url, Message: message, Err: err, Timestamp: time.Now()}
}

// AdapterConfigError indicates an adapter was misconfigured (missing API
// key, invalid base URL) in a way no retry can fix.
type AdapterConfigError struct {
	Adapter string
	Field   string
	Message string
}

func (e *AdapterConfigError) Error() string {
	return fmt.Sprintf("adapter config [%s] field %q: %s", e.Adapter, e.Field, e.Message)
}

func NewAdapterConfigError(adapter, field, message string) *AdapterConfigError {
	return &AdapterConfigError{Adapter: adapter, Field: field, Message: message}
}

// UrlNotAllowed is returned by the URL guard when a target fails the
// SSRF-defense predicate. It is programmer-facing in the sense that a
// correctly configured adapter should never construct a disallowed URL;
// callers are still expected to handle it via the normal error return.
type UrlNotAllowed struct {
	URL    string
	Reason string
}

func (e *UrlNotAllowed) Error() string {
	return fmt.Sprintf("url not allowed: %q: %s", e.URL, e.Reason)
}

func NewUrlNotAllowed(url, reason string) *UrlNotAllowed {
	return &UrlNotAllowed{URL: url, Reason: reason}
}

// InvalidUserId is returned when a memory-service operation is called with
// a user_id that fails validation (empty, or containing characters unsafe
// for use in a collection name).
type InvalidUserId struct {
	UserID string
	Reason string
}

func (e *InvalidUserId) Error() string {
	return fmt.Sprintf("invalid user_id %q: %s", e.UserID, e.Reason)
}

func NewInvalidUserId(userID, reason string) *InvalidUserId {
	return &InvalidUserId{UserID: userID, Reason: reason}
}

// InvalidBoardName is returned by the forum adapter when a board name
// doesn't match the allowed pattern.
type InvalidBoardName struct {
	Board string
}

func (e *InvalidBoardName) Error() string {
	return fmt.Sprintf("invalid board name %q: must match ^[A-Za-z0-9_-]+$", e.Board)
}

func NewInvalidBoardName(board string) *InvalidBoardName {
	return &InvalidBoardName{Board: board}
}

// StoreError wraps a structured-store or vector-store operation failure.
type StoreError struct {
	Store     string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store [%s] %s: %s: %v", e.Store, e.Operation, e.Message, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(store, operation, message string, err error) *StoreError {
	return &StoreError{Store: store, Operation: operation, Message: message, Err: err}
}

// PipelineNoData is returned by the orchestrator when every opted-in
// source's scrape came back empty and no analysis can be produced.
type PipelineNoData struct {
	Topic   string
	Sources []string
}

func (e *PipelineNoData) Error() string {
	return fmt.Sprintf("pipeline: no data gathered for topic %q from sources %v", e.Topic, e.Sources)
}

func NewPipelineNoData(topic string, sources []string) *PipelineNoData {
	return &PipelineNoData{Topic: topic, Sources: sources}
}

// PipelineDecomposeFailed wraps a Query Decomposer agent failure.
type PipelineDecomposeFailed struct {
	Topic string
	Err   error
}

func (e *PipelineDecomposeFailed) Error() string {
	return fmt.Sprintf("pipeline: query decomposition failed for %q: %v", e.Topic, e.Err)
}

func (e *PipelineDecomposeFailed) Unwrap() error { return e.Err }

func NewPipelineDecomposeFailed(topic string, err error) *PipelineDecomposeFailed {
	return &PipelineDecomposeFailed{Topic: topic, Err: err}
}

// PipelineAnalysisFailed wraps an Analyzer agent failure.
type PipelineAnalysisFailed struct {
	Topic       string
	SourceCount int
	Err         error
}

func (e *PipelineAnalysisFailed) Error() string {
	return fmt.Sprintf("pipeline: analysis failed for %q over %d sources: %v", e.Topic, e.SourceCount, e.Err)
}

func (e *PipelineAnalysisFailed) Unwrap() error { return e.Err }

func NewPipelineAnalysisFailed(topic string, sourceCount int, err error) *PipelineAnalysisFailed {
	return &PipelineAnalysisFailed{Topic: topic, SourceCount: sourceCount, Err: err}
}

// PipelineSynthesisFailed wraps a Synthesizer agent failure.
type PipelineSynthesisFailed struct {
	Topic string
	Err   error
}

func (e *PipelineSynthesisFailed) Error() string {
	return fmt.Sprintf("pipeline: synthesis failed for %q: %v", e.Topic, e.Err)
}

func (e *PipelineSynthesisFailed) Unwrap() error { return e.Err }

func NewPipelineSynthesisFailed(topic string, err error) *PipelineSynthesisFailed {
	return &PipelineSynthesisFailed{Topic: topic, Err: err}
}

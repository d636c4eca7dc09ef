// Package agent implements the five stateless pipeline agents: Query
// Decomposer, News Gatherer, Social Gatherer, Analyzer, and Synthesizer.
// Each agent is a pure function from a typed input to a typed Result.
package agent

// Result is the uniform outcome shape every agent returns: either OK with
// Data populated, or not-OK with an error kind and human-readable message.
// It deliberately isn't a Go error, since agent failures are data the
// orchestrator routes on rather than something that unwinds the call stack.
type Result[T any] struct {
	OK        bool
	Data      T
	ErrorKind string
	Message   string
}

func Ok[T any](data T) Result[T] {
	return Result[T]{OK: true, Data: data}
}

func Fail[T any](errorKind, message string) Result[T] {
	return Result[T]{ErrorKind: errorKind, Message: message}
}

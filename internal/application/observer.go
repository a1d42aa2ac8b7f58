package application

import "time"

// Observer receives operation outcomes, typically to export metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	ProposalCommitted(strategy string, attempts int, elapsed time.Duration)
	ProposalExhausted(attempts int)
	AttemptRecorded(outcome string)
	ConflictDetected(operation string)
}

// NopObserver discards every observation.
type NopObserver struct{}

func (NopObserver) ProposalCommitted(string, int, time.Duration) {}
func (NopObserver) ProposalExhausted(int)                        {}
func (NopObserver) AttemptRecorded(string)                       {}
func (NopObserver) ConflictDetected(string)                      {}

package domain

import "time"

// TurnState is a step of the per-utterance pipeline.
type TurnState string

const (
	TurnIdle        TurnState = "idle"
	TurnGateChecked TurnState = "gate_checked"
	TurnRetrieved   TurnState = "retrieved"
	TurnCompressed  TurnState = "compressed"
	TurnInjected    TurnState = "injected"
)

// Stage names used for degradation tracking and metrics.
const (
	StageRetrieve = "retrieve"
	StageCompress = "compress"
	StageReply    = "reply"
)

// TurnOutcome records what the pipeline did for one utterance.
type TurnOutcome struct {
	Utterance     string
	GatePassed    bool
	PassageCount  int
	Locations     []string
	Fact          CompressedFact
	Injected      bool
	Degraded      []string
	Trace         []TurnState
	Duration      time.Duration
	ReplyDegraded bool
}

// Visit records a state transition.
func (o *TurnOutcome) Visit(s TurnState) {
	o.Trace = append(o.Trace, s)
}

// MarkDegraded records that a stage fell back to its degraded path.
func (o *TurnOutcome) MarkDegraded(stage string) {
	for _, s := range o.Degraded {
		if s == stage {
			return
		}
	}
	o.Degraded = append(o.Degraded, stage)
}

// IsDegraded reports whether the given stage degraded.
func (o *TurnOutcome) IsDegraded(stage string) bool {
	for _, s := range o.Degraded {
		if s == stage {
			return true
		}
	}
	return false
}

// Label classifies the turn for logs and metrics.
func (o *TurnOutcome) Label() string {
	switch {
	case !o.GatePassed:
		return "skipped"
	case o.Fact.Kind() == FactExcerpt:
		return "excerpt"
	case o.Injected:
		return "injected"
	default:
		return "not_relevant"
	}
}

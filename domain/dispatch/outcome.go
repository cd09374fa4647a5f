package dispatch

import (
	"time"

	"github.com/felixgeelhaar/domguard/domain/action"
)

// Request is the input of one dispatch cycle.
type Request struct {
	// Command is the natural-language instruction.
	Command string `json:"command"`

	// Code is the untrusted generated code. It is only pattern-matched.
	Code string `json:"code"`

	// Source is the provenance claimed for Code. It is a routing hint only.
	Source string `json:"source,omitempty"`

	// Target is the executor-specific handle of the page to mutate.
	Target string `json:"target"`
}

// Transition is one recorded state change of a cycle.
type Transition struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// Outcome is the result of a dispatch cycle. Exactly one is produced per
// cycle, including cycles that end in failure.
type Outcome struct {
	CycleID  string        `json:"cycle_id"`
	ActionID action.ID     `json:"action_id"`
	Params   action.Params `json:"params"`
	Source   Source        `json:"source"`

	// Succeeded is true when the action was applied to the target.
	Succeeded bool `json:"succeeded"`

	Command string `json:"command"`

	// Code is the code attributed to the outcome: the generated code on the
	// generated path, the canonical rendering of the synthesized action on
	// the fallback path.
	Code   string `json:"code"`
	Target string `json:"target"`

	// Reason explains a fallback or a failure.
	Reason string `json:"reason,omitempty"`

	Trail     []Transition  `json:"trail"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// FinalState returns the terminal state of the cycle.
func (o Outcome) FinalState() State {
	if len(o.Trail) == 0 {
		return StateStart
	}
	return o.Trail[len(o.Trail)-1].To
}

// FellBack reports whether the cycle passed through the fallback state.
func (o Outcome) FellBack() bool {
	for _, t := range o.Trail {
		if t.To == StateFallingBack {
			return true
		}
	}
	return false
}

// Report is the audit record forwarded to a Reporter.
type Report struct {
	CycleID   string    `json:"cycle_id"`
	Command   string    `json:"command"`
	Code      string    `json:"code"`
	Success   bool      `json:"success"`
	Source    Source    `json:"source"`
	ActionID  action.ID `json:"action_id"`
	TargetURL string    `json:"target_url"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReport builds the audit record of an outcome.
func NewReport(o Outcome) Report {
	return Report{
		CycleID:   o.CycleID,
		Command:   o.Command,
		Code:      o.Code,
		Success:   o.Succeeded,
		Source:    o.Source,
		ActionID:  o.ActionID,
		TargetURL: o.Target,
		Timestamp: o.StartedAt.Add(o.Duration),
	}
}

// Generated is the response of the generation service.
type Generated struct {
	Code string `json:"code"`

	// Source is the provenance the service claims. Informational only.
	Source string `json:"source"`
}

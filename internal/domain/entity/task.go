package entity

import "time"

type RunStatus string

const (
	RunStatusStoppedByAction        RunStatus = "stopped_by_action"
	RunStatusStoppedByJudge         RunStatus = "stopped_by_judge"
	RunStatusStoppedByChoiceFailure RunStatus = "stopped_by_choice_failure"
	RunStatusMaxIterationsReached   RunStatus = "max_iterations_reached"
)

// FinalStatus collapses the terminal state into the two tags shown to users.
func (s RunStatus) FinalStatus() string {
	if s == RunStatusMaxIterationsReached {
		return "max_iterations_reached"
	}
	return "completed"
}

// Outcome is the recorded result of dispatching one action.
type Outcome struct {
	Success bool       `json:"success" yaml:"success"`
	Action  ActionName `json:"action" yaml:"action"`
	Details string     `json:"details" yaml:"details"`
}

type HistoryEntry struct {
	Iteration int     `json:"iteration" yaml:"iteration"`
	Action    Action  `json:"action" yaml:"action"`
	Outcome   Outcome `json:"outcome" yaml:"outcome"`
}

// RunResult is built once when the loop exits.
type RunResult struct {
	ID         string         `json:"id" yaml:"id"`
	Request    string         `json:"request" yaml:"request"`
	Iterations int            `json:"total_iterations" yaml:"total_iterations"`
	Status     RunStatus      `json:"status" yaml:"status"`
	Reason     string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	History    []HistoryEntry `json:"history" yaml:"history"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
}

func (r *RunResult) FinalStatus() string {
	return r.Status.FinalStatus()
}

func (r *RunResult) Outcomes() []Outcome {
	outcomes := make([]Outcome, 0, len(r.History))
	for _, entry := range r.History {
		outcomes = append(outcomes, entry.Outcome)
	}
	return outcomes
}

package entity

// Feedback is the continuation judge's verdict on the latest outcome.
type Feedback struct {
	ShouldContinue bool    `json:"should_continue" yaml:"should_continue"`
	Message        string  `json:"message" yaml:"message"`
	Confidence     float64 `json:"confidence" yaml:"confidence"`
}

type EvaluationCriteria struct {
	Request   string
	Iteration int
	Outcome   Outcome
}

// ClampConfidence forces confidence into [0,1].
func (f Feedback) ClampConfidence() Feedback {
	switch {
	case f.Confidence < 0:
		f.Confidence = 0
	case f.Confidence > 1:
		f.Confidence = 1
	}
	return f
}

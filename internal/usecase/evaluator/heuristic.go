package evaluator

import (
	"context"
	"strings"
	"unicode"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
)

var _ output.ContinuationJudge = (*Heuristic)(nil)

var (
	runKeywords  = []string{"run", "execute", "exécute", "lance", "launch", "start"}
	testKeywords = []string{"test", "pytest", "verif", "vérif", "check"}
)

// Heuristic decides without an oracle call, keyed on the action that just
// succeeded and keywords in the request.
type Heuristic struct {
	logger output.LoggerPort
}

func NewHeuristic(logger output.LoggerPort) *Heuristic {
	return &Heuristic{logger: logger}
}

func (h *Heuristic) Judge(_ context.Context, criteria entity.EvaluationCriteria) entity.Feedback {
	words := tokenize(criteria.Request)
	wantsRun := mentions(words, runKeywords)
	wantsTests := mentions(words, testKeywords)

	var feedback entity.Feedback
	switch criteria.Outcome.Action {
	case entity.ActionWriteFile:
		switch {
		case wantsRun:
			feedback = entity.Feedback{ShouldContinue: true, Message: "File written; the request asks to run it.", Confidence: 0.8}
		case wantsTests:
			feedback = entity.Feedback{ShouldContinue: true, Message: "File written; the request asks for tests.", Confidence: 0.8}
		default:
			feedback = entity.Feedback{ShouldContinue: false, Message: "File written; nothing else was asked.", Confidence: 0.7}
		}
	case entity.ActionRunFile:
		if wantsTests {
			feedback = entity.Feedback{ShouldContinue: true, Message: "Program ran; tests are still pending.", Confidence: 0.7}
		} else {
			feedback = entity.Feedback{ShouldContinue: false, Message: "Program ran successfully.", Confidence: 0.8}
		}
	case entity.ActionRunTests:
		feedback = entity.Feedback{ShouldContinue: false, Message: "Tests passed.", Confidence: 0.9}
	default:
		feedback = entity.Feedback{ShouldContinue: false, Message: "No rule for " + string(criteria.Outcome.Action) + ".", Confidence: 0.5}
	}

	h.logger.Debug("Heuristic verdict",
		"action", criteria.Outcome.Action,
		"should_continue", feedback.ShouldContinue,
	)
	return feedback
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// mentions reports whether any word starts with one of the keywords, so
// "tests" and "lancer" match "test" and "lance".
func mentions(words, keywords []string) bool {
	for _, w := range words {
		for _, k := range keywords {
			if strings.HasPrefix(w, k) {
				return true
			}
		}
	}
	return false
}

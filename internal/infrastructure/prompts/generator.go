package prompts

import (
	"bytes"
	"strings"
	"text/template"
	"unicode/utf8"

	"task-agent/internal/application/service"
	"task-agent/internal/domain/entity"
)

// maxHistoryDetails bounds each history line so long outputs do not crowd
// out the catalog.
const maxHistoryDetails = 600

type ActionInfo struct {
	Signature   string
	Description string
}

type HistoryLine struct {
	Iteration int
	Action    string
	Success   bool
	Details   string
}

type ChooserPromptData struct {
	Request       string
	Iteration     int
	MaxIterations int
	History       []HistoryLine
	Actions       []ActionInfo
}

type JudgePromptData struct {
	Request   string
	Iteration int
	Action    string
	Success   bool
	Details   string
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

func GenerateChooserPrompt(baseTemplate string, data ChooserPromptData) (string, error) {
	return render("chooser", baseTemplate, data)
}

func GenerateJudgePrompt(baseTemplate string, criteria entity.EvaluationCriteria) (string, error) {
	return render("judge", baseTemplate, JudgePromptData{
		Request:   criteria.Request,
		Iteration: criteria.Iteration,
		Action:    string(criteria.Outcome.Action),
		Success:   criteria.Outcome.Success,
		Details:   criteria.Outcome.Details,
	})
}

// NewChooserPromptData flattens run state into template data. Catalog order
// is preserved.
func NewChooserPromptData(request string, iteration, maxIterations int, history []entity.HistoryEntry, catalog []service.ActionSpec) ChooserPromptData {
	lines := make([]HistoryLine, 0, len(history))
	for _, entry := range history {
		lines = append(lines, HistoryLine{
			Iteration: entry.Iteration,
			Action:    formatAction(entry.Action),
			Success:   entry.Outcome.Success,
			Details:   oneLine(entry.Outcome.Details, maxHistoryDetails),
		})
	}

	actions := make([]ActionInfo, 0, len(catalog))
	for _, spec := range catalog {
		actions = append(actions, ActionInfo{
			Signature:   spec.Signature(),
			Description: spec.Description,
		})
	}

	return ChooserPromptData{
		Request:       request,
		Iteration:     iteration,
		MaxIterations: maxIterations,
		History:       lines,
		Actions:       actions,
	}
}

func render(name, baseTemplate string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func formatAction(a entity.Action) string {
	var b strings.Builder
	b.WriteString(string(a.Name))
	b.WriteByte('(')
	first := true
	for _, key := range a.Arguments.Keys() {
		if !first {
			b.WriteString(", ")
		}
		first = false
		val := a.Arguments.String(key)
		if key == "content" {
			val = oneLine(val, 80)
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(val)
	}
	b.WriteByte(')')
	return b.String()
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > limit {
		for limit > 0 && !utf8.RuneStart(s[limit]) {
			limit--
		}
		s = s[:limit] + "..."
	}
	return s
}

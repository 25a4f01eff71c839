package prompts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"task-agent/internal/application/service"
	"task-agent/internal/domain/entity"
)

func TestGenerateChooserPrompt(t *testing.T) {
	history := []entity.HistoryEntry{
		{
			Iteration: 1,
			Action: entity.Action{
				Name:      entity.ActionWriteFile,
				Arguments: entity.Arguments{"path": "greet.py", "content": "print('hi')"},
			},
			Outcome: entity.Outcome{Success: true, Action: entity.ActionWriteFile, Details: "wrote 11 bytes to greet.py"},
		},
	}
	data := NewChooserPromptData("create greet.py then run it", 2, 5, history, service.NewActionCatalog().All())

	result, err := GenerateChooserPrompt(ChooserPrompt, data)
	if err != nil {
		t.Fatalf("GenerateChooserPrompt failed: %v", err)
	}

	for _, want := range []string{
		"USER REQUEST: create greet.py then run it",
		"CURRENT ITERATION: 2 of 5",
		"1. write_file(content=print('hi'), path=greet.py) [ok] wrote 11 bytes to greet.py",
		"1. write_file(path, content)",
		"web_scrape(url, selector?)",
		"9. stop(reason?)",
		`"action": "action_name"`,
	} {
		if !strings.Contains(result, want) {
			t.Errorf("prompt should contain %q\n%s", want, result)
		}
	}
	if strings.Contains(result, "No previous action.") {
		t.Error("prompt with history should not claim an empty history")
	}
}

func TestGenerateChooserPromptEmptyHistory(t *testing.T) {
	data := NewChooserPromptData("list files", 1, 3, nil, service.NewActionCatalog().All())

	result, err := GenerateChooserPrompt(ChooserPrompt, data)
	if err != nil {
		t.Fatalf("GenerateChooserPrompt failed: %v", err)
	}
	if !strings.Contains(result, "No previous action.") {
		t.Error("first iteration prompt should mention the empty history")
	}
}

func TestGenerateChooserPromptTruncatesDetails(t *testing.T) {
	history := []entity.HistoryEntry{{
		Iteration: 1,
		Action:    entity.Action{Name: entity.ActionReadFile, Arguments: entity.Arguments{"path": "big.txt"}},
		Outcome:   entity.Outcome{Success: true, Action: entity.ActionReadFile, Details: strings.Repeat("x", 5000)},
	}}
	data := NewChooserPromptData("read", 2, 3, history, nil)

	if got := len(data.History[0].Details); got != maxHistoryDetails+3 {
		t.Errorf("details length = %d, want %d", got, maxHistoryDetails+3)
	}
}

func TestGenerateChooserPromptInvalidTemplate(t *testing.T) {
	_, err := GenerateChooserPrompt(`Test {{.InvalidField}}`, ChooserPromptData{})
	if err == nil {
		t.Error("Expected error for invalid template, got nil")
	}
}

func TestGenerateJudgePrompt(t *testing.T) {
	result, err := GenerateJudgePrompt(JudgePrompt, entity.EvaluationCriteria{
		Request:   "run the tests",
		Iteration: 3,
		Outcome:   entity.Outcome{Success: true, Action: entity.ActionRunTests, Details: "2 passed"},
	})
	if err != nil {
		t.Fatalf("GenerateJudgePrompt failed: %v", err)
	}

	for _, want := range []string{"USER REQUEST: run the tests", "ITERATION: 3", "EXECUTED ACTION: run_tests", "RESULT: 2 passed", "should_continue"} {
		if !strings.Contains(result, want) {
			t.Errorf("prompt should contain %q", want)
		}
	}
}

func TestOneLineKeepsRunesWhole(t *testing.T) {
	got := oneLine(strings.Repeat("é", 10), 5)
	if got != "éé..." {
		t.Errorf("expected %q, got %q", "éé...", got)
	}
	if !utf8.ValidString(got) {
		t.Error("result is not valid UTF-8")
	}
}

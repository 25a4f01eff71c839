package prompts

import (
	_ "embed"
)

//go:embed chooser.txt
var ChooserPrompt string

//go:embed judge.txt
var JudgePrompt string

//go:embed chat_system.txt
var ChatSystemPrompt string

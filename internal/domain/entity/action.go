package entity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type ActionName string

const (
	ActionWriteFile    ActionName = "write_file"
	ActionRunFile      ActionName = "run_file"
	ActionListFiles    ActionName = "list_files"
	ActionReadFile     ActionName = "read_file"
	ActionRunTests     ActionName = "run_tests"
	ActionWebScrape    ActionName = "web_scrape"
	ActionAnalyzeImage ActionName = "analyze_image"
	ActionChooseTool   ActionName = "choose_tool"
	ActionStop         ActionName = "stop"
)

// AllActions lists the closed action set in catalog order.
var AllActions = []ActionName{
	ActionWriteFile,
	ActionRunFile,
	ActionListFiles,
	ActionReadFile,
	ActionRunTests,
	ActionWebScrape,
	ActionAnalyzeImage,
	ActionChooseTool,
	ActionStop,
}

// camelCase names produced by older prompt versions
var actionAliases = map[string]ActionName{
	"writefile":        ActionWriteFile,
	"launchpythonfile": ActionRunFile,
	"runfile":          ActionRunFile,
	"listfiles":        ActionListFiles,
	"readfile":         ActionReadFile,
	"runtests":         ActionRunTests,
	"webscraping":      ActionWebScrape,
	"webscrape":        ActionWebScrape,
	"analyzeimage":     ActionAnalyzeImage,
	"choosetool":       ActionChooseTool,
}

func (a ActionName) String() string {
	return string(a)
}

func (a ActionName) Valid() bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}

// ParseActionName maps raw oracle output onto the closed action set.
func ParseActionName(raw string) (ActionName, error) {
	name := ActionName(strings.TrimSpace(raw))
	if name.Valid() {
		return name, nil
	}
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(string(name)))
	if alias, ok := actionAliases[key]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("unknown action %q", raw)
}

// Arguments holds action arguments. Values are strings or booleans once
// normalized by NewArguments.
type Arguments map[string]any

// NewArguments copies raw decoded JSON arguments, keeping booleans and
// flattening every other scalar to its string form.
func NewArguments(raw map[string]any) Arguments {
	args := make(Arguments, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case bool:
			args[k] = val
		case string:
			args[k] = val
		case float64:
			args[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			args[k] = fmt.Sprint(val)
		}
	}
	return args
}

func (a Arguments) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (a Arguments) StringOr(key, fallback string) string {
	if v := a.String(key); v != "" {
		return v
	}
	return fallback
}

// Keys returns the argument names in sorted order.
func (a Arguments) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a Arguments) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Action is one tool invocation chosen by the oracle.
type Action struct {
	Name      ActionName `json:"action" yaml:"action"`
	Arguments Arguments  `json:"arguments" yaml:"arguments"`
	Reasoning string     `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

func (a Action) IsStop() bool {
	return a.Name == ActionStop
}

// StopReason returns the reason carried by a stop action.
func (a Action) StopReason() string {
	return a.Arguments.StringOr("reason", "task completed")
}

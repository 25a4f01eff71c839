package service

import (
	"fmt"
	"strings"

	"task-agent/internal/domain/entity"
)

type ArgumentSpec struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

type ActionSpec struct {
	Name        entity.ActionName
	Description string
	Arguments   []ArgumentSpec
}

// Signature renders the action as name(arg, arg?) for prompt catalogs.
func (s ActionSpec) Signature() string {
	parts := make([]string, 0, len(s.Arguments))
	for _, arg := range s.Arguments {
		if arg.Required {
			parts = append(parts, arg.Name)
		} else {
			parts = append(parts, arg.Name+"?")
		}
	}
	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(parts, ", "))
}

// ActionCatalog is the fixed table of actions offered to the oracle.
type ActionCatalog struct {
	specs []ActionSpec
}

func NewActionCatalog() *ActionCatalog {
	return &ActionCatalog{specs: defaultSpecs()}
}

func (c *ActionCatalog) All() []ActionSpec {
	result := make([]ActionSpec, len(c.specs))
	copy(result, c.specs)
	return result
}

func (c *ActionCatalog) Get(name entity.ActionName) (ActionSpec, bool) {
	for _, spec := range c.specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return ActionSpec{}, false
}

// Validate checks that every required argument of the action is present.
func (c *ActionCatalog) Validate(action entity.Action) error {
	spec, ok := c.Get(action.Name)
	if !ok {
		return fmt.Errorf("action %q is not in the catalog", action.Name)
	}
	var missing []string
	for _, arg := range spec.Arguments {
		if !arg.Required {
			continue
		}
		if _, ok := action.Arguments[arg.Name]; !ok {
			missing = append(missing, arg.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing arguments for %s: %s", action.Name, strings.Join(missing, ", "))
	}
	return nil
}

func defaultSpecs() []ActionSpec {
	return []ActionSpec{
		{
			Name:        entity.ActionWriteFile,
			Description: "Create or overwrite a file, creating parent directories",
			Arguments: []ArgumentSpec{
				{Name: "path", Type: "string", Required: true, Description: "file path relative to the workspace"},
				{Name: "content", Type: "string", Required: true, Description: "full file content"},
			},
		},
		{
			Name:        entity.ActionRunFile,
			Description: "Execute a program file and capture stdout/stderr",
			Arguments: []ArgumentSpec{
				{Name: "path", Type: "string", Required: true, Description: "file to execute"},
				{Name: "args", Type: "string", Description: "space separated arguments"},
			},
		},
		{
			Name:        entity.ActionListFiles,
			Description: "List files (name, size, extension) and subdirectories of a directory",
			Arguments: []ArgumentSpec{
				{Name: "path", Type: "string", Description: "directory, defaults to ."},
			},
		},
		{
			Name:        entity.ActionReadFile,
			Description: "Read a text file, returning its content, line count and size",
			Arguments: []ArgumentSpec{
				{Name: "path", Type: "string", Required: true, Description: "file to read"},
			},
		},
		{
			Name:        entity.ActionRunTests,
			Description: "Run the test suite against a path or pattern",
			Arguments: []ArgumentSpec{
				{Name: "path", Type: "string", Description: "test path or pattern, defaults to ."},
			},
		},
		{
			Name:        entity.ActionWebScrape,
			Description: "Fetch a URL and extract title, text and links, or the elements matching a CSS selector",
			Arguments: []ArgumentSpec{
				{Name: "url", Type: "string", Required: true, Description: "http(s) URL"},
				{Name: "selector", Type: "string", Description: "CSS selector"},
			},
		},
		{
			Name:        entity.ActionAnalyzeImage,
			Description: "Describe an image file (or a screenshot of a URL) with a vision model",
			Arguments: []ArgumentSpec{
				{Name: "path", Type: "string", Description: "image file"},
				{Name: "url", Type: "string", Description: "page to screenshot instead of a file"},
				{Name: "prompt", Type: "string", Description: "question about the image"},
			},
		},
		{
			Name:        entity.ActionChooseTool,
			Description: "Think out loud about which tool to use next",
			Arguments: []ArgumentSpec{
				{Name: "context", Type: "string", Description: "reasoning context"},
			},
		},
		{
			Name:        entity.ActionStop,
			Description: "Stop: the request is fulfilled or cannot progress",
			Arguments: []ArgumentSpec{
				{Name: "reason", Type: "string", Description: "why the work ends"},
			},
		},
	}
}

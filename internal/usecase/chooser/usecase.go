package chooser

import (
	"context"
	"errors"
	"fmt"

	"task-agent/internal/application/port/output"
	"task-agent/internal/application/service"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/prompts"
)

var _ output.ActionChooser = (*UseCase)(nil)

type UseCase struct {
	oracle   output.TextOracle
	catalog  *service.ActionCatalog
	logger   output.LoggerPort
	template string
}

func New(
	oracle output.TextOracle,
	catalog *service.ActionCatalog,
	logger output.LoggerPort,
	template string,
) *UseCase {
	if template == "" {
		template = prompts.ChooserPrompt
	}
	return &UseCase{
		oracle:   oracle,
		catalog:  catalog,
		logger:   logger,
		template: template,
	}
}

// Choose asks the oracle for exactly one action. The call is not retried on
// a bad answer; the loop decides what to do with the failure.
func (uc *UseCase) Choose(ctx context.Context, req output.ChoiceRequest) (entity.Action, error) {
	if req.Request == "" {
		return entity.Action{}, fmt.Errorf("%w: empty request", entity.ErrChoiceFailure)
	}

	data := prompts.NewChooserPromptData(req.Request, req.Iteration, req.MaxIterations, req.History, uc.catalog.All())
	prompt, err := prompts.GenerateChooserPrompt(uc.template, data)
	if err != nil {
		return entity.Action{}, entity.NewFatalError("render chooser prompt", err)
	}

	uc.logger.Debug("Choosing action", "iteration", req.Iteration, "promptLen", len(prompt))

	var raw map[string]any
	if err := uc.oracle.GenerateJSON(ctx, prompt, &raw); err != nil {
		if entity.IsFatal(err) {
			return entity.Action{}, err
		}
		uc.logger.Warn("Oracle gave no usable decision", "iteration", req.Iteration, "error", err)
		return entity.Action{}, fmt.Errorf("%w: %w", entity.ErrChoiceFailure, err)
	}

	action, err := uc.decode(raw)
	if err != nil {
		uc.logger.Warn("Rejected decision", "iteration", req.Iteration, "error", err)
		return entity.Action{}, fmt.Errorf("%w: %w", entity.ErrChoiceFailure, err)
	}

	uc.logger.Info("Action chosen", "iteration", req.Iteration, "action", action.Name)
	return action, nil
}

// decode turns the decoded JSON object into a validated action. Arguments
// placed next to "action" instead of under "arguments" are accepted.
func (uc *UseCase) decode(raw map[string]any) (entity.Action, error) {
	if raw == nil {
		return entity.Action{}, errors.New("decision is not a JSON object")
	}
	nameRaw, ok := raw["action"].(string)
	if !ok {
		return entity.Action{}, errors.New(`decision has no "action" string`)
	}
	name, err := entity.ParseActionName(nameRaw)
	if err != nil {
		return entity.Action{}, err
	}

	var args map[string]any
	switch v := raw["arguments"].(type) {
	case map[string]any:
		args = v
	case nil:
		args = make(map[string]any)
		for k, val := range raw {
			if k != "action" && k != "reasoning" {
				args[k] = val
			}
		}
	default:
		return entity.Action{}, fmt.Errorf(`"arguments" must be an object, got %T`, v)
	}

	reasoning, _ := raw["reasoning"].(string)
	action := entity.Action{
		Name:      name,
		Arguments: entity.NewArguments(args),
		Reasoning: reasoning,
	}
	if err := uc.catalog.Validate(action); err != nil {
		return entity.Action{}, err
	}
	return action, nil
}

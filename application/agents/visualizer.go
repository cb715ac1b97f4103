package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
)

// Generator names stored on visuals.
const (
	GeneratorComfyUI    = "comfyui"
	GeneratorPromptOnly = "prompt-only"
)

// alternativeStyle picks a contrasting style for the second variation.
var alternativeStyle = map[valueobjects.Category]string{
	valueobjects.CategoryCreative:     string(valueobjects.CategoryPersonal),
	valueobjects.CategoryBusiness:     string(valueobjects.CategoryUtility),
	valueobjects.CategoryUtility:      string(valueobjects.CategoryBusiness),
	valueobjects.CategoryPersonal:     string(valueobjects.CategoryCreative),
	valueobjects.CategoryMetaphysical: string(valueobjects.CategoryCreative),
}

// Visualizer turns an idea into image prompts and, when an image generator
// is reachable, into images.
type Visualizer struct {
	*BaseAgent
	ideas     ports.IdeaRepository
	derived   ports.DerivedRepository
	ai        ports.IdeaIntelligence
	generator ports.ImageGenerator
	next      ports.TaskSubmitter
}

// NewVisualizer creates the visualizer agent. ai and generator may be nil.
func NewVisualizer(deps Deps, ideas ports.IdeaRepository, derived ports.DerivedRepository, ai ports.IdeaIntelligence, generator ports.ImageGenerator, next ports.TaskSubmitter) *Visualizer {
	v := &Visualizer{ideas: ideas, derived: derived, ai: ai, generator: generator, next: next}
	v.BaseAgent = NewBaseAgent(Info{
		ID:          VisualizerID,
		Name:        "Visualizer",
		Description: "Creates visual interpretations of ideas.",
	}, deps, v.process)
	return v
}

func (v *Visualizer) process(ctx context.Context, task Task) (map[string]interface{}, error) {
	idea, err := v.ideas.FindIdea(ctx, task.IdeaID)
	if err != nil {
		return nil, err
	}
	expanded := payloadString(task.Payload, "expanded_content", "")

	primary := string(idea.Category)
	if primary == "" {
		primary = string(valueobjects.CategoryCreative)
	}
	alternative, ok := alternativeStyle[valueobjects.Category(primary)]
	if !ok {
		alternative = string(valueobjects.CategoryCreative)
	}

	render := v.generator != nil && v.generator.Available(ctx)
	generator := GeneratorPromptOnly
	if render {
		generator = GeneratorComfyUI
	}

	var ids []string
	rendered := false
	for _, style := range []string{primary, alternative, "abstract"} {
		prompt := v.prompt(ctx, idea, expanded, style)
		visual := entities.NewVisual(idea.ID, prompt, style, generator)
		if render {
			files, err := v.generator.Generate(ctx, prompt, style)
			switch {
			case err != nil:
				v.logger.Warn("Image generation failed, keeping prompt only",
					zap.String("style", style),
					zap.Error(err),
				)
				visual.Generator = GeneratorPromptOnly
			case len(files) > 0:
				visual.ImagePath = files[0]
				rendered = true
			}
		}
		if err := v.derived.SaveVisual(ctx, visual); err != nil {
			return nil, err
		}
		ids = append(ids, visual.ID)
	}

	if v.deps.Publisher != nil {
		if err := v.deps.Publisher.Publish(ctx, events.NewVisualGenerated(idea.ID.String(), idea.UserID, ids, rendered)); err != nil {
			v.logger.Warn("Failed to publish visual event", zap.Error(err))
		}
	}

	submit(v.next, v.logger, ProposerID, Task{
		IdeaID:  idea.ID,
		UserID:  idea.UserID,
		Payload: map[string]interface{}{"expanded_content": expanded},
	})

	return map[string]interface{}{
		"visualizations_count": len(ids),
		"rendered":             rendered,
		"generator":            generator,
	}, nil
}

func (v *Visualizer) prompt(ctx context.Context, idea *entities.Idea, expanded, style string) string {
	source := idea.Content()
	if style != "abstract" && expanded != "" {
		source = source + "\n\n" + expanded
	}
	if v.ai != nil && v.ai.Available() {
		p, err := v.ai.VisualPrompt(ctx, source, style)
		if err == nil && strings.TrimSpace(p) != "" {
			return strings.TrimSpace(p)
		}
		if err != nil {
			v.logger.Debug("Model visual prompt failed, using template", zap.String("style", style), zap.Error(err))
		}
	}
	return templatePrompt(idea.Content(), style)
}

func templatePrompt(content, style string) string {
	subject := strings.TrimSpace(content)
	if r := []rune(subject); len(r) > 200 {
		subject = string(r[:200])
	}
	if style == "abstract" {
		return fmt.Sprintf("abstract interpretation of %q, flowing shapes, symbolic color, no text", subject)
	}
	return fmt.Sprintf("%s style illustration of %q, detailed, high quality", style, subject)
}

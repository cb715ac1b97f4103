package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
)

// Expander writes longer treatments of an idea: a general one and one from
// the point of view of a specialist in the idea's category.
type Expander struct {
	*BaseAgent
	ideas   ports.IdeaRepository
	derived ports.DerivedRepository
	ai      ports.IdeaIntelligence
	next    ports.TaskSubmitter
}

// NewExpander creates the expander agent. ai may be nil.
func NewExpander(deps Deps, ideas ports.IdeaRepository, derived ports.DerivedRepository, ai ports.IdeaIntelligence, next ports.TaskSubmitter) *Expander {
	e := &Expander{ideas: ideas, derived: derived, ai: ai, next: next}
	e.BaseAgent = NewBaseAgent(Info{
		ID:          ExpanderID,
		Name:        "Expander",
		Description: "Develops promising ideas into fuller write-ups.",
	}, deps, e.process)
	return e
}

func (e *Expander) process(ctx context.Context, task Task) (map[string]interface{}, error) {
	idea, err := e.ideas.FindIdea(ctx, task.IdeaID)
	if err != nil {
		return nil, err
	}

	expansions, err := e.expand(ctx, idea)
	if err != nil {
		return nil, err
	}

	types := make([]string, 0, len(expansions))
	for _, exp := range expansions {
		if err := e.derived.SaveExpansion(ctx, exp); err != nil {
			return nil, err
		}
		types = append(types, string(exp.Type))
	}

	if e.deps.Publisher != nil {
		if err := e.deps.Publisher.Publish(ctx, events.NewIdeaExpanded(idea.ID.String(), idea.UserID, types)); err != nil {
			e.logger.Warn("Failed to publish expansion event", zap.Error(err))
		}
	}

	submit(e.next, e.logger, VisualizerID, Task{
		IdeaID:  idea.ID,
		UserID:  idea.UserID,
		Payload: map[string]interface{}{"expanded_content": expansions[0].Content},
	})

	return map[string]interface{}{
		"expansions_count": len(expansions),
		"types":            types,
	}, nil
}

func (e *Expander) expand(ctx context.Context, idea *entities.Idea) ([]entities.Expansion, error) {
	content := idea.Content()
	category := string(idea.Category)
	if category == "" {
		category = string(valueobjects.CategoryUtility)
	}

	if e.ai == nil || !e.ai.Available() {
		return []entities.Expansion{
			entities.NewExpansion(idea.ID, valueobjects.ExpansionSpecialized, templateExpansion(content, idea.Category), "template"),
		}, nil
	}

	var general, specialized string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		general, err = e.ai.ExpandIdea(gctx, content, category)
		return err
	})
	g.Go(func() error {
		var err error
		specialized, err = e.ai.SpecializedExpansion(gctx, content, category)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	model := e.ai.Model()
	return []entities.Expansion{
		entities.NewExpansion(idea.ID, generalType(model), general, model),
		entities.NewExpansion(idea.ID, valueobjects.ExpansionSpecialized, specialized, model),
	}, nil
}

// generalType names a general expansion after the model family that wrote it.
func generalType(model string) valueobjects.ExpansionType {
	m := strings.ToLower(model)
	if strings.Contains(m, "gpt") || strings.Contains(m, "openai") {
		return valueobjects.ExpansionGPT
	}
	return valueobjects.ExpansionClaude
}

var expansionPrompts = map[valueobjects.Category][]string{
	valueobjects.CategoryCreative: {
		"What medium would carry this best?",
		"Who is the audience and what should they feel?",
		"What is the smallest piece you could make this week?",
	},
	valueobjects.CategoryBusiness: {
		"Who has this problem badly enough to pay for a fix?",
		"What do they use today instead?",
		"How could you test demand before building anything?",
	},
	valueobjects.CategoryPersonal: {
		"What would change day to day if this worked?",
		"What is the first habit to try?",
		"How will you know it is working after a month?",
	},
	valueobjects.CategoryMetaphysical: {
		"Which symbols or images stand out?",
		"What feeling does it leave you with?",
		"Is there a practice that would let you explore it further?",
	},
	valueobjects.CategoryUtility: {
		"Which repetitive task does this remove?",
		"What is the simplest version that is still useful?",
		"What existing tools could it be built on?",
	},
}

func templateExpansion(content string, category valueobjects.Category) string {
	questions, ok := expansionPrompts[category]
	if !ok {
		questions = expansionPrompts[valueobjects.CategoryUtility]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Idea: %s\n\nQuestions to develop it:\n", strings.TrimSpace(content))
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return b.String()
}

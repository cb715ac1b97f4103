package agents

import (
	"context"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/valueobjects"
	domainservices "dreamcatcher/domain/services"
)

// Listener routes freshly captured ideas. Dreams are profiled straight away,
// everything else goes to the classifier.
type Listener struct {
	*BaseAgent
	ideas  ports.IdeaRepository
	scorer *domainservices.SharedScorer
	next   ports.TaskSubmitter
}

// NewListener creates the listener agent.
func NewListener(deps Deps, ideas ports.IdeaRepository, scorer *domainservices.SharedScorer, next ports.TaskSubmitter) *Listener {
	l := &Listener{ideas: ideas, scorer: scorer, next: next}
	l.BaseAgent = NewBaseAgent(Info{
		ID:          ListenerID,
		Name:        "Listener",
		Description: "Receives captured ideas and routes them through the pipeline.",
	}, deps, l.process)
	return l
}

func (l *Listener) process(ctx context.Context, task Task) (map[string]interface{}, error) {
	idea, err := l.ideas.FindIdea(ctx, task.IdeaID)
	if err != nil {
		return nil, err
	}

	if idea.SourceType == valueobjects.SourceDream {
		dreamType := payloadString(task.Payload, "dream_type", "regular")
		idea.ApplyClassification(l.scorer.Get().DreamProfile(idea.Content(), dreamType))
		if err := l.ideas.SaveIdea(ctx, idea); err != nil {
			return nil, err
		}
		publish(ctx, l.deps, idea)
		submit(l.next, l.logger, SemanticID, Task{IdeaID: idea.ID, UserID: idea.UserID})
		return map[string]interface{}{
			"routed_to":  SemanticID,
			"dream_type": dreamType,
			"category":   string(idea.Category),
		}, nil
	}

	idea.StartProcessing()
	if err := l.ideas.SaveIdea(ctx, idea); err != nil {
		return nil, err
	}
	if l.next == nil {
		return map[string]interface{}{"routed_to": ""}, nil
	}
	if err := l.next.Submit(ClassifierID, Task{IdeaID: idea.ID, UserID: idea.UserID}); err != nil {
		idea.Fail()
		if saveErr := l.ideas.SaveIdea(ctx, idea); saveErr != nil {
			return nil, saveErr
		}
		return nil, err
	}
	return map[string]interface{}{"routed_to": ClassifierID}, nil
}

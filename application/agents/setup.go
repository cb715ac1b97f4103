package agents

import (
	"dreamcatcher/application/ports"
	domainservices "dreamcatcher/domain/services"
)

// Collaborators are the services the standard agent set is built from.
// AI, Images, Notifier and AutoExpand are optional.
type Collaborators struct {
	Store      ports.Store
	Scorer     *domainservices.SharedScorer
	AI         ports.IdeaIntelligence
	Images     ports.ImageGenerator
	Embedder   ports.Embedder
	Notifier   ports.Notifier
	AutoExpand ExpandPreference
}

// RegisterDefaults builds the seven pipeline agents and registers them.
// Agents hand work to each other through next.
func RegisterDefaults(reg *Registry, next ports.TaskSubmitter, deps Deps, c Collaborators) error {
	if deps.Logs == nil {
		deps.Logs = c.Store
	}
	all := []Agent{
		NewListener(deps, c.Store, c.Scorer, next),
		NewClassifier(deps, c.Store, c.Scorer, c.AI, c.AutoExpand, next),
		NewExpander(deps, c.Store, c.Store, c.AI, next),
		NewVisualizer(deps, c.Store, c.Store, c.AI, c.Images, next),
		NewProposer(deps, c.Store, c.Store, c.Store, c.AI, c.Notifier, next),
		NewReviewer(deps, c.Store, c.Store, c.Notifier),
		NewSemantic(deps, c.Store, c.Store, c.Embedder),
	}
	for _, a := range all {
		if err := reg.Register(a); err != nil {
			return err
		}
	}
	return nil
}

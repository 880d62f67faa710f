package taskutil

import "github.com/opst/eoflow/pkg/domain"

// UnknownCardinality is the cardinality of components without ports.
const UnknownCardinality = -1

// SourceCardinality returns the largest cardinality of source ports.
func SourceCardinality(c domain.Component) int {
	if len(c.Sources) == 0 {
		return UnknownCardinality
	}
	card := c.Sources[0].Cardinality
	for _, p := range c.Sources[1:] {
		card = max(card, p.Cardinality)
	}
	return card
}

// TargetCardinality returns the sum of cardinalities of target ports.
func TargetCardinality(c domain.Component) int {
	if len(c.Targets) == 0 {
		return UnknownCardinality
	}
	card := 0
	for _, p := range c.Targets {
		card += p.Cardinality
	}
	return card
}

// EffectiveCardinality is the cardinality which the task runs with.
// The override of the task, if any, wins over the component.
func EffectiveCardinality(task domain.ExecutionTask, c domain.Component) int {
	if task.Cardinality != nil {
		return *task.Cardinality
	}
	return SourceCardinality(c)
}

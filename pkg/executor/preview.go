package executor

import (
	"github.com/arthur-debert/dotup/pkg/config"
	"github.com/arthur-debert/dotup/pkg/graph"
	"github.com/arthur-debert/dotup/pkg/links"
	"github.com/arthur-debert/dotup/pkg/types"
)

// GroupPlan is the planned work of one link_group task
type GroupPlan struct {
	TaskID  string                `json:"task" yaml:"task"`
	Actions []types.PlannedAction `json:"actions,omitempty" yaml:"actions,omitempty"`
	Error   string                `json:"error,omitempty" yaml:"error,omitempty"`
}

// Preview validates cfg and plans every link group in dependency order
// without changing anything. Sources that a repo task would clone show up
// as invalid actions.
func (e *Executor) Preview(cfg types.Config) ([]GroupPlan, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	g, err := graph.Build(cfg.Tasks)
	if err != nil {
		return nil, err
	}

	group := links.NewGroup(links.GroupOptions{FS: e.fs})
	var plans []GroupPlan
	for _, id := range g.TopologicalOrder() {
		i, _ := g.Index(id)
		spec := g.Spec(i)
		if spec.Kind != types.KindLinkGroup {
			continue
		}
		plan := GroupPlan{TaskID: id}
		actions, err := group.Preview(*spec.Links)
		if err != nil {
			plan.Error = err.Error()
		}
		plan.Actions = actions
		plans = append(plans, plan)
	}
	return plans, nil
}

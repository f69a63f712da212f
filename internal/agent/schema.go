package agent

import "github.com/mohammad-safakhou/planweave/internal/tool"

// PlanStep is one step of a dynamic plan.
//
// Retry is only meaningfully >0 when the step involves network or IO work,
// and is capped at 3.
type PlanStep struct {
	Description   string `json:"description" yaml:"description"`
	SuggestedTool string `json:"suggested_tool" yaml:"suggested_tool"`
	SubQuery      string `json:"sub_query" yaml:"sub_query"`
	Explanation   string `json:"explanation" yaml:"explanation"`
	Retry         int    `json:"retry" yaml:"retry"`
}

// RecommendedTool describes a tool the planner wishes existed but does not
// have available.
type RecommendedTool struct {
	Name        string               `json:"name" yaml:"name"`
	Description string               `json:"description" yaml:"description"`
	Reason      string               `json:"reason" yaml:"reason"`
	Parameters  []tool.ToolParameter `json:"parameters" yaml:"parameters"`
}

// DynamicPlan is one structured proposal for satisfying a query. Steps and
// RecommendationTools are mutually exclusive: a plan either sequences the
// available tools or asks for missing ones.
type DynamicPlan struct {
	Description         string            `json:"description" yaml:"description"`
	Steps               []PlanStep        `json:"steps" yaml:"steps"`
	RecommendationTools []RecommendedTool `json:"recommendation_tools" yaml:"recommendation_tools"`
	RecommendationScore float64           `json:"recommendation_score" yaml:"recommendation_score"`
}

// DynamicPlanContainer is the structured-output target for plan generation.
type DynamicPlanContainer struct {
	Plans []DynamicPlan `json:"plans" yaml:"plans"`
}

// DynamicPlanTracer is a DynamicPlan stamped with a content-derived id plus
// replay bookkeeping. NExecution starts at 0 and may be incremented by a
// caller that tracks replays; ParentID optionally points at a prior plan.
type DynamicPlanTracer struct {
	DynamicPlan `yaml:",inline"`
	ID          string `json:"id" yaml:"id"`
	NExecution  int    `json:"n_execution" yaml:"n_execution"`
	ParentID    string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
}

package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed plan_schema.json
var planSchemaJSON string

var (
	compileOnce sync.Once
	planSchema  *jsonschema.Schema
	compileErr  error
)

// PlanSchema returns the compiled JSON Schema for plan containers produced
// by the planning model.
func PlanSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("plan_schema.json", strings.NewReader(planSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("plan_schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile plan schema: %w", err)
			return
		}
		planSchema = schema
	})
	return planSchema, compileErr
}

// ValidatePlanContainer validates the provided JSON bytes against the plan
// container schema. The schema checks structure only; value repairs (score
// and retry clamping, exclusivity) happen in normalization so a fixable plan
// never hard-fails.
func ValidatePlanContainer(data []byte) error {
	schema, err := PlanSchema()
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("plan is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("plan does not match schema: %w", err)
	}
	return nil
}

// normalizePlan repairs the value-level rules the prompt asks the model to
// follow: steps and recommendation_tools are mutually exclusive (steps win),
// the recommendation score stays in [0,1] and retry counts stay in [0,3].
func normalizePlan(p *DynamicPlan) {
	if len(p.Steps) > 0 {
		p.RecommendationTools = nil
	}
	if p.RecommendationScore < 0 {
		p.RecommendationScore = 0
	}
	if p.RecommendationScore > 1 {
		p.RecommendationScore = 1
	}
	for i := range p.Steps {
		if p.Steps[i].Retry < 0 {
			p.Steps[i].Retry = 0
		}
		if p.Steps[i].Retry > 3 {
			p.Steps[i].Retry = 3
		}
	}
}

// prunePlans keeps only the highest-scoring plan when its score exceeds the
// runner-up's by more than 0.4. The gap check runs on a sorted copy; when
// several plans survive they stay in the order the model emitted them.
func prunePlans(plans []DynamicPlan) []DynamicPlan {
	if len(plans) < 2 {
		return plans
	}
	sorted := make([]DynamicPlan, len(plans))
	copy(sorted, plans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecommendationScore > sorted[j].RecommendationScore
	})
	if sorted[0].RecommendationScore-sorted[1].RecommendationScore > 0.4 {
		return sorted[:1]
	}
	return plans
}

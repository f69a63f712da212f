package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mohammad-safakhou/planweave/config"
	"github.com/mohammad-safakhou/planweave/internal/llm"
	"github.com/mohammad-safakhou/planweave/internal/telemetry"
	"github.com/mohammad-safakhou/planweave/internal/tool"
	"github.com/mohammad-safakhou/planweave/provider"
	"github.com/mohammad-safakhou/planweave/utils"
)

// noAgentsDescription is the description of the degenerate plan returned
// when the registry holds no tools.
const noAgentsDescription = "No agents available"

// PlanGenerationError wraps any failure on the plan-generation path with the
// query that triggered it.
type PlanGenerationError struct {
	Query string
	Err   error
}

func (e *PlanGenerationError) Error() string {
	return fmt.Sprintf("generating plan for %q: %v", e.Query, e.Err)
}

func (e *PlanGenerationError) Unwrap() error { return e.Err }

// Generator turns a natural-language task into one or more dynamic plans
// over the registry's materialized tools.
type Generator struct {
	gateway  *llm.Client
	registry *tool.Registry
	routing  config.LLMRoutingConfig
	logger   *log.Logger
	metrics  *telemetry.Metrics
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorLogger overrides the generator's logger.
func WithGeneratorLogger(l *log.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// WithGeneratorMetrics attaches prometheus instruments.
func WithGeneratorMetrics(m *telemetry.Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator creates a plan generator over the given gateway and registry.
func NewGenerator(gateway *llm.Client, registry *tool.Registry, routing config.LLMRoutingConfig, opts ...GeneratorOption) *Generator {
	g := &Generator{
		gateway:  gateway,
		registry: registry,
		routing:  routing,
		logger:   log.New(os.Stderr, "[PLANNER] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GeneratePlan asks the planning model for dynamic plans satisfying the
// query, given the registry's tools. With an empty registry it returns a
// single degenerate plan with score zero and no model round trip. The
// planning call is a single attempt; transient-failure recovery belongs to
// the caller, who typically re-issues the whole request. The raw model
// payload is schema-validated before decoding; the resulting plans are
// normalized, score-pruned and stamped with a content-derived id.
func (g *Generator) GeneratePlan(ctx context.Context, query string) ([]DynamicPlanTracer, error) {
	tools := g.registry.Tools()
	if len(tools) == 0 {
		g.logger.Printf("no tools registered, returning degenerate plan")
		g.metrics.PlanGenerated("degenerate")
		return []DynamicPlanTracer{{
			DynamicPlan: DynamicPlan{
				Description:         noAgentsDescription,
				RecommendationScore: 0.0,
			},
			ID: utils.GenerateID(noAgentsDescription),
		}}, nil
	}

	userMsg, err := g.buildQuery(query, tools)
	if err != nil {
		g.metrics.PlanGenerated("error")
		return nil, &PlanGenerationError{Query: query, Err: err}
	}

	messages := []provider.Message{
		{Role: "system", Content: DynamicPlanInstruction},
		{Role: "user", Content: userMsg},
	}
	container, err := llm.StructuredOutput[DynamicPlanContainer](ctx, g.gateway, messages,
		llm.WithModel(g.routing.Planning),
		llm.WithMaxTokens(g.routing.PlanningMaxTokens),
		llm.WithMaxTry(1),
		llm.WithValidator(ValidatePlanContainer),
	)
	if err != nil {
		outcome := "error"
		var vErr *jsonschema.ValidationError
		if errors.As(err, &vErr) {
			outcome = "invalid"
		}
		g.metrics.PlanGenerated(outcome)
		return nil, &PlanGenerationError{Query: query, Err: err}
	}

	plans := container.Plans
	for i := range plans {
		normalizePlan(&plans[i])
	}
	plans = prunePlans(plans)

	tracers := make([]DynamicPlanTracer, 0, len(plans))
	for _, p := range plans {
		tracers = append(tracers, DynamicPlanTracer{
			DynamicPlan: p,
			ID:          utils.GenerateID(p.Description),
		})
	}
	g.logger.Printf("generated %d plan(s) for query", len(tracers))
	g.metrics.PlanGenerated("ok")
	return tracers, nil
}

// buildQuery renders the query block followed by one YAML tool block per
// registered tool, in deterministic order.
func (g *Generator) buildQuery(query string, tools map[string]tool.RegisteredTool) (string, error) {
	ids := make([]string, 0, len(tools))
	for id := range tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("<Query>\n")
	b.WriteString(query)
	b.WriteString("\n</Query>")
	for _, id := range ids {
		y, err := utils.ToYAML(tools[id].Schema)
		if err != nil {
			return "", fmt.Errorf("render tool schema: %w", err)
		}
		b.WriteString("\n<Tool>\n")
		b.WriteString(y)
		b.WriteString("</Tool>")
	}
	return b.String(), nil
}

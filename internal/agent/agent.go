package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/mohammad-safakhou/planweave/config"
	"github.com/mohammad-safakhou/planweave/internal/llm"
	"github.com/mohammad-safakhou/planweave/internal/pool"
	"github.com/mohammad-safakhou/planweave/internal/telemetry"
	"github.com/mohammad-safakhou/planweave/internal/tool"
	"github.com/mohammad-safakhou/planweave/provider"
)

// Agent wires the gateway, the tool registry, the worker pools and the plan
// generator into one service. Tools are registered up front; Start
// materializes them and brings the pools up, Stop drains the pools.
type Agent struct {
	cfg       *config.Config
	gateway   *llm.Client
	registry  *tool.Registry
	generator *Generator
	logger    *log.Logger
	metrics   *telemetry.Metrics

	mu      sync.Mutex
	ioPool  *pool.Pool
	cpuPool *pool.Pool
	started bool
}

// AgentOption customizes an Agent.
type AgentOption func(*agentOptions)

type agentOptions struct {
	transport provider.Transport
	logger    *log.Logger
	metrics   *telemetry.Metrics
}

// WithTransport injects a transport instead of dialing the configured
// endpoint. Used by tests and by callers that manage their own binding.
func WithTransport(t provider.Transport) AgentOption {
	return func(o *agentOptions) { o.transport = t }
}

// WithAgentLogger overrides the agent's logger.
func WithAgentLogger(l *log.Logger) AgentOption {
	return func(o *agentOptions) { o.logger = l }
}

// WithMetrics attaches prometheus instruments to the agent and everything
// it builds.
func WithMetrics(m *telemetry.Metrics) AgentOption {
	return func(o *agentOptions) { o.metrics = m }
}

// New assembles an agent from configuration. Unless a transport is
// injected, the remote binding is created from cfg.LLM.
func New(cfg *config.Config, opts ...AgentOption) (*Agent, error) {
	o := agentOptions{
		logger: log.New(os.Stderr, "[AGENT] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(&o)
	}

	transport := o.transport
	if transport == nil {
		t, err := provider.New(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("creating llm transport: %w", err)
		}
		transport = t
	}

	gateway := llm.New(transport, cfg.LLM, llm.WithMetrics(o.metrics))
	registry := tool.NewRegistry(gateway)
	generator := NewGenerator(gateway, registry, cfg.LLM.Routing, WithGeneratorMetrics(o.metrics))

	return &Agent{
		cfg:       cfg,
		gateway:   gateway,
		registry:  registry,
		generator: generator,
		logger:    o.logger,
		metrics:   o.metrics,
	}, nil
}

// Register queues fn for materialization. Functions whose first parameter
// is a context.Context run inline; the rest are offloaded to the IO pool,
// or to the CPU pool with tool.WithCPUBound().
func (a *Agent) Register(fn any, opts ...tool.RegisterOption) (*tool.Invocable, error) {
	return a.registry.Register(fn, opts...)
}

// Registry exposes the underlying tool registry.
func (a *Agent) Registry() *tool.Registry { return a.registry }

// Gateway exposes the underlying model gateway.
func (a *Agent) Gateway() *llm.Client { return a.gateway }

// GeneratePlan produces dynamic plans for the query over the materialized
// tools.
func (a *Agent) GeneratePlan(ctx context.Context, query string) ([]DynamicPlanTracer, error) {
	return a.generator.GeneratePlan(ctx, query)
}

// Start brings the worker pools up and materializes every pending tool
// registration. Calling Start again materializes registrations queued since
// the previous call; the pools are created once.
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Printf("starting up agent")

	a.mu.Lock()
	if !a.started {
		a.ioPool = pool.New(pool.KindIO, a.cfg.Pools.IOWorkers)
		a.cpuPool = pool.New(pool.KindCPU, a.cfg.Pools.CPUWorkers)
		a.registry.SetPools(a.ioPool, a.cpuPool)
		a.started = true
	}
	a.mu.Unlock()

	if err := a.registry.Materialize(ctx); err != nil {
		return fmt.Errorf("materializing tools: %w", err)
	}
	n := len(a.registry.Tools())
	a.metrics.SetRegisteredTools(n)
	a.logger.Printf("agent is ready with %d tool(s)", n)
	return nil
}

// Stop drains the worker pools. In-flight tool executions finish; new
// submissions fail.
func (a *Agent) Stop() {
	a.logger.Printf("shutting down agent")

	a.mu.Lock()
	ioPool, cpuPool := a.ioPool, a.cpuPool
	a.ioPool, a.cpuPool = nil, nil
	a.started = false
	a.mu.Unlock()

	if ioPool != nil {
		ioPool.Shutdown()
	}
	if cpuPool != nil {
		cpuPool.Shutdown()
	}
	a.logger.Printf("agent has been shut down")
}

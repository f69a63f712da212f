// Package tool implements the tool registry: functions are registered
// cheaply and synchronously, wrapped for uniform invocation, and their
// model-derived schemas are materialized later in one concurrent batch,
// deduplicated by the content hash of each function's source text.
package tool

import (
	"context"
	"log"
	"reflect"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/planweave/internal/pool"
	"github.com/mohammad-safakhou/planweave/utils"
)

// DefaultPrefix is the entry-point prefix used when none is configured.
const DefaultPrefix = "/agent/v1"

// Describer asks the remote model for a structured description of a
// function. Implemented by the llm gateway.
type Describer interface {
	DescribeFunction(ctx context.Context, meta FuncMeta) (ToolSchema, error)
}

// pendingRegistration is a deferred unit of work queued by Register and
// consumed exactly once by Materialize.
type pendingRegistration struct {
	meta      FuncMeta
	invocable *Invocable
}

// Registry owns the code_id -> RegisteredTool map and the queue of pending
// registrations. The worker pools are externally owned and injected; the
// Registry never creates or shuts them down.
type Registry struct {
	prefix    string
	describer Describer
	logger    *log.Logger

	mu      sync.Mutex
	ioPool  *pool.Pool
	cpuPool *pool.Pool
	tools   map[string]RegisteredTool
	pending []pendingRegistration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithPrefix overrides the entry-point prefix.
func WithPrefix(prefix string) RegistryOption {
	return func(r *Registry) { r.prefix = prefix }
}

// WithLogger overrides the registry logger.
func WithLogger(logger *log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates a Registry that delegates schema generation to the
// given describer.
func NewRegistry(describer Describer, opts ...RegistryOption) *Registry {
	r := &Registry{
		prefix:    DefaultPrefix,
		describer: describer,
		logger:    log.New(log.Writer(), "[REGISTRY] ", log.LstdFlags),
		tools:     make(map[string]RegisteredTool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetPools injects the worker pools used for offloaded invocation. Either
// may be nil; invoking a tool routed to a nil pool fails with
// PoolNotInitializedError.
func (r *Registry) SetPools(io, cpu *pool.Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ioPool = io
	r.cpuPool = cpu
}

func (r *Registry) poolFor(kind pool.Kind) *pool.Pool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kind == pool.KindCPU {
		return r.cpuPool
	}
	return r.ioPool
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	cpuBound bool
}

// WithCPUBound routes a synchronous function to the CPU pool instead of the
// IO pool. Has no effect on context-aware functions, which always run inline.
func WithCPUBound() RegisterOption {
	return func(o *registerOptions) { o.cpuBound = true }
}

// Register wraps fn for uniform invocation and queues its schema generation
// for the next Materialize call. It is cheap: no network traffic happens
// here. The wrapper is returned immediately; a non-function fn fails with
// ErrInvalidInput before anything is queued.
func (r *Registry) Register(fn any, opts ...RegisterOption) (*Invocable, error) {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	meta, err := Inspect(fn)
	if err != nil {
		return nil, err
	}

	v := reflect.ValueOf(fn)
	mode := execIO
	if o.cpuBound {
		mode = execCPU
	}
	if t := v.Type(); t.NumIn() > 0 && t.In(0) == ctxType {
		// Context-aware functions suspend cooperatively on their own.
		mode = execInline
	}

	inv := &Invocable{fn: v, mode: mode, reg: r}

	r.mu.Lock()
	r.pending = append(r.pending, pendingRegistration{meta: meta, invocable: inv})
	r.mu.Unlock()

	return inv, nil
}

// Materialize consumes every pending registration in one concurrent fan-out,
// asking the describer for each function's schema, and merges the results
// into the tool map keyed by code_id (the content hash of the function's
// source text). Registrations whose code_id is already present are skipped.
// The pending queue is cleared unconditionally, even on failure. Joint
// awaiting is all-or-nothing: one failed description fails the whole call
// and no new entries are added; entries from prior calls are preserved.
func (r *Registry) Materialize(ctx context.Context) error {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	known := make(map[string]bool, len(r.tools))
	for id := range r.tools {
		known[id] = true
	}
	r.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	// Content-based deduplication: identical source collapses to one entry,
	// both against prior materializations and within this batch.
	type job struct {
		pendingRegistration
		codeID string
	}
	var jobs []job
	for _, p := range pending {
		id := utils.GenerateID(p.meta.Source)
		if known[id] {
			r.logger.Printf("skipping duplicate registration for %s (code_id %s)", p.meta.Name, id)
			continue
		}
		known[id] = true
		jobs = append(jobs, job{pendingRegistration: p, codeID: id})
	}
	if len(jobs) == 0 {
		return nil
	}

	results := make([]RegisteredTool, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			schema, err := r.describer.DescribeFunction(gctx, j.meta)
			if err != nil {
				return err
			}
			results[i] = RegisteredTool{
				Invocable:  j.invocable,
				EntryPoint: r.prefix + "/" + j.meta.File + "/" + schema.Name,
				CodeID:     j.codeID,
				Schema:     schema,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.mu.Lock()
	for _, rt := range results {
		if _, exists := r.tools[rt.CodeID]; exists {
			continue
		}
		r.tools[rt.CodeID] = rt
	}
	count := len(r.tools)
	r.mu.Unlock()

	r.logger.Printf("materialized %d registrations, %d tools total", len(jobs), count)
	return nil
}

// Tools returns a copy of the current code_id -> RegisteredTool map.
func (r *Registry) Tools() map[string]RegisteredTool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]RegisteredTool, len(r.tools))
	for id, rt := range r.tools {
		out[id] = rt
	}
	return out
}

// Clear discards every registered tool and pending registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = make(map[string]RegisteredTool)
	r.pending = nil
}

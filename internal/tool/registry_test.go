package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mohammad-safakhou/planweave/internal/pool"
	"github.com/mohammad-safakhou/planweave/utils"
)

// sampleAdd returns the sum of two integers.
func sampleAdd(a int, b int) int { return a + b }

func sampleFail() error { return errors.New("tool failed") }

func sampleGreet(ctx context.Context, name string) (string, error) {
	return "hello " + name, nil
}

type fakeDescriber struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error
}

func (d *fakeDescriber) DescribeFunction(_ context.Context, meta FuncMeta) (ToolSchema, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.fail != nil {
		if err, ok := d.fail[meta.Name]; ok {
			return ToolSchema{}, err
		}
	}
	return ToolSchema{
		Name:        meta.Name,
		Description: "described " + meta.Name,
		Tags:        []string{"test"},
	}, nil
}

func (d *fakeDescriber) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func TestRegisterRejectsNonFunction(t *testing.T) {
	r := NewRegistry(&fakeDescriber{})

	if _, err := r.Register("not a function"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := r.Register(nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil, got %v", err)
	}

	// Nothing must have been queued.
	if err := r.Materialize(context.Background()); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if n := len(r.Tools()); n != 0 {
		t.Fatalf("expected empty registry, got %d tools", n)
	}
}

func TestMaterializeDeduplicatesIdenticalSource(t *testing.T) {
	d := &fakeDescriber{}
	r := NewRegistry(d)

	if _, err := r.Register(sampleAdd); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.Register(sampleAdd); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Materialize(context.Background()); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	tools := r.Tools()
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool after duplicate registration, got %d", len(tools))
	}
	if d.callCount() != 1 {
		t.Fatalf("expected 1 describe call, got %d", d.callCount())
	}

	// Registering the same source again after materialization is also a no-op.
	if _, err := r.Register(sampleAdd); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Materialize(context.Background()); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(r.Tools()) != 1 || d.callCount() != 1 {
		t.Fatalf("expected dedup across materialize calls, got %d tools / %d calls", len(r.Tools()), d.callCount())
	}
}

func TestMaterializeAllOrNothingAndClearsPending(t *testing.T) {
	d := &fakeDescriber{fail: map[string]error{"sampleFail": errors.New("description failed")}}
	r := NewRegistry(d)

	if _, err := r.Register(sampleAdd); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.Register(sampleFail); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := r.Materialize(context.Background()); err == nil {
		t.Fatalf("expected materialize to fail")
	}
	if n := len(r.Tools()); n != 0 {
		t.Fatalf("expected no tools after failed materialize, got %d", n)
	}

	// The pending queue was cleared despite the failure.
	before := d.callCount()
	if err := r.Materialize(context.Background()); err != nil {
		t.Fatalf("Materialize after failure: %v", err)
	}
	if d.callCount() != before {
		t.Fatalf("expected no further describe calls, got %d", d.callCount()-before)
	}
}

func TestMaterializePreservesPriorEntries(t *testing.T) {
	d := &fakeDescriber{}
	r := NewRegistry(d)

	if _, err := r.Register(sampleAdd); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Materialize(context.Background()); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	d.fail = map[string]error{"sampleFail": errors.New("nope")}
	if _, err := r.Register(sampleFail); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Materialize(context.Background()); err == nil {
		t.Fatalf("expected second materialize to fail")
	}
	if n := len(r.Tools()); n != 1 {
		t.Fatalf("expected prior entry to survive, got %d tools", n)
	}
}

func TestEntryPointSynthesis(t *testing.T) {
	r := NewRegistry(&fakeDescriber{}, WithPrefix("/agent/v1"))

	if _, err := r.Register(sampleAdd); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Materialize(context.Background()); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	for _, rt := range r.Tools() {
		want := "/agent/v1/registry_test/sampleAdd"
		if rt.EntryPoint != want {
			t.Fatalf("entry point = %q, want %q", rt.EntryPoint, want)
		}
	}
}

func TestCodeIDMatchesSourceHash(t *testing.T) {
	r := NewRegistry(&fakeDescriber{})

	if _, err := r.Register(sampleAdd); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Materialize(context.Background()); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	meta, err := Inspect(sampleAdd)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	want := utils.GenerateID(meta.Source)
	if _, ok := r.Tools()[want]; !ok {
		t.Fatalf("expected tool keyed by source hash %q", want)
	}
}

func TestInvokeRoutesThroughCPUPool(t *testing.T) {
	r := NewRegistry(&fakeDescriber{})
	ioPool := pool.New(pool.KindIO, 2)
	cpuPool := pool.New(pool.KindCPU, 2)
	defer ioPool.Shutdown()
	defer cpuPool.Shutdown()
	r.SetPools(ioPool, cpuPool)

	inv, err := r.Register(sampleAdd, WithCPUBound())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := inv.Invoke(context.Background(), 19, 23)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != sampleAdd(19, 23) {
		t.Fatalf("pool result %v differs from direct call %v", got, sampleAdd(19, 23))
	}
	if cpuPool.Executed() != 1 {
		t.Fatalf("expected the CPU pool to execute the call, executed=%d", cpuPool.Executed())
	}
	if ioPool.Executed() != 0 {
		t.Fatalf("expected the IO pool to stay idle, executed=%d", ioPool.Executed())
	}
}

func TestInvokeDefaultsToIOPool(t *testing.T) {
	r := NewRegistry(&fakeDescriber{})
	ioPool := pool.New(pool.KindIO, 1)
	defer ioPool.Shutdown()
	r.SetPools(ioPool, nil)

	inv, err := r.Register(sampleAdd)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := inv.Invoke(context.Background(), 1, 2); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if ioPool.Executed() != 1 {
		t.Fatalf("expected IO pool execution, executed=%d", ioPool.Executed())
	}
}

func TestInvokeWithoutPoolFails(t *testing.T) {
	r := NewRegistry(&fakeDescriber{})

	inv, err := r.Register(sampleAdd, WithCPUBound())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err = inv.Invoke(context.Background(), 1, 2)
	var pErr *PoolNotInitializedError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected PoolNotInitializedError, got %v", err)
	}
	if pErr.Kind != pool.KindCPU {
		t.Fatalf("expected the error to name the cpu pool, got %q", pErr.Kind)
	}
	if !strings.Contains(pErr.Error(), "cpu") {
		t.Fatalf("error message should name the missing pool: %q", pErr.Error())
	}
}

func TestInvokeContextAwareRunsInline(t *testing.T) {
	r := NewRegistry(&fakeDescriber{})
	// No pools configured on purpose: context-aware functions must not need them.

	inv, err := r.Register(sampleGreet)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := inv.Invoke(context.Background(), "world")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestInvokePropagatesToolError(t *testing.T) {
	r := NewRegistry(&fakeDescriber{})
	ioPool := pool.New(pool.KindIO, 1)
	defer ioPool.Shutdown()
	r.SetPools(ioPool, nil)

	inv, err := r.Register(sampleFail)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := inv.Invoke(context.Background()); err == nil || err.Error() != "tool failed" {
		t.Fatalf("expected tool error to propagate unchanged, got %v", err)
	}
}

func TestInvokeAfterPoolShutdownFails(t *testing.T) {
	r := NewRegistry(&fakeDescriber{})
	ioPool := pool.New(pool.KindIO, 1)
	r.SetPools(ioPool, nil)
	ioPool.Shutdown()

	inv, err := r.Register(sampleAdd)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := inv.Invoke(context.Background(), 1, 2); !errors.Is(err, pool.ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestInvokeArityMismatch(t *testing.T) {
	r := NewRegistry(&fakeDescriber{})
	ioPool := pool.New(pool.KindIO, 1)
	defer ioPool.Shutdown()
	r.SetPools(ioPool, nil)

	inv, err := r.Register(sampleAdd)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := inv.Invoke(context.Background(), 1); err == nil {
		t.Fatalf("expected arity error")
	}
}

func TestMaterializeFanOutIsConcurrent(t *testing.T) {
	// A describer that blocks until all expected calls have started proves
	// the fan-out issues every request before awaiting any of them.
	const n = 3
	d := &gateDescriber{gate: make(chan struct{}), expect: n}
	r := NewRegistry(d)

	fns := []any{sampleAdd, sampleFail, sampleGreet}
	for _, fn := range fns {
		if _, err := r.Register(fn); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	if err := r.Materialize(context.Background()); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(r.Tools()) != n {
		t.Fatalf("expected %d tools, got %d", n, len(r.Tools()))
	}
}

type gateDescriber struct {
	mu      sync.Mutex
	started int
	expect  int
	gate    chan struct{}
}

func (d *gateDescriber) DescribeFunction(ctx context.Context, meta FuncMeta) (ToolSchema, error) {
	d.mu.Lock()
	d.started++
	if d.started == d.expect {
		close(d.gate)
	}
	d.mu.Unlock()

	select {
	case <-d.gate:
	case <-ctx.Done():
		return ToolSchema{}, ctx.Err()
	}
	return ToolSchema{Name: fmt.Sprintf("tool_%s", meta.Name)}, nil
}

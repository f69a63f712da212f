package tool

import (
	"context"
	"fmt"
	"reflect"

	"github.com/mohammad-safakhou/planweave/internal/pool"
)

// execMode is resolved once at registration time: context-aware functions
// run inline, synchronous ones are dispatched to a worker pool.
type execMode int

const (
	execInline execMode = iota
	execIO
	execCPU
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Invocable wraps a registered function so it can be invoked uniformly
// regardless of whether it is context-aware, IO-bound or CPU-bound. The
// wrapper looks its pool up at call time, so registering before the pools
// are configured is fine as long as no offloaded call happens in between.
type Invocable struct {
	fn   reflect.Value
	mode execMode
	reg  *Registry
}

// Invoke calls the wrapped function with the given arguments. Context-aware
// functions receive ctx as their first argument and run inline; synchronous
// functions run on their designated pool, with the return value and error
// propagated unchanged. A missing pool yields PoolNotInitializedError.
func (inv *Invocable) Invoke(ctx context.Context, args ...any) (any, error) {
	if inv.mode == execInline {
		callArgs := make([]any, 0, len(args)+1)
		callArgs = append(callArgs, ctx)
		callArgs = append(callArgs, args...)
		return call(inv.fn, callArgs...)
	}

	kind := pool.KindIO
	if inv.mode == execCPU {
		kind = pool.KindCPU
	}
	p := inv.reg.poolFor(kind)
	if p == nil {
		return nil, &PoolNotInitializedError{Kind: kind}
	}
	return p.Submit(ctx, func() (any, error) {
		return call(inv.fn, args...)
	})
}

// call invokes fn reflectively. A trailing error return is split off; a
// single remaining value is returned as-is, multiple values as []any.
func call(fn reflect.Value, args ...any) (result any, err error) {
	t := fn.Type()
	numIn := t.NumIn()
	if t.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("%s expects at least %d arguments, got %d", t, numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", t, numIn, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if t.IsVariadic() && i >= numIn-1 {
			pt = t.In(numIn - 1).Elem()
		} else {
			pt = t.In(i)
		}
		in[i] = argValue(arg, pt)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("tool call panicked: %v", r)
		}
	}()
	out := fn.Call(in)

	n := len(out)
	if n > 0 && t.Out(n-1) == errType {
		if !out[n-1].IsNil() {
			err = out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		values := make([]any, len(out))
		for i, v := range out {
			values[i] = v.Interface()
		}
		return values, err
	}
}

func argValue(arg any, pt reflect.Type) reflect.Value {
	if arg == nil {
		return reflect.Zero(pt)
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(pt) {
		return v
	}
	if v.Type().ConvertibleTo(pt) {
		return v.Convert(pt)
	}
	// Let Call surface the mismatch; the deferred recover turns it into an error.
	return v
}

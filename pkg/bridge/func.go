package bridge

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

var (
	contextType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
	dataframeType = reflect.TypeOf((*core.Dataframe)(nil))
)

// Func is a user function prepared for invocation by an Operator.
type Func struct {
	fn     reflect.Value
	params []reflect.Type
	names  []string
	hasCtx bool
	hasErr bool
}

// NewFunc wraps fn. It must be a non-variadic function returning T or (T, error).
// An optional leading context.Context parameter receives the execution context.
// paramNames name the remaining parameters in declaration order and enable keyword
// arguments; with no names only positional arguments can be bound.
func NewFunc(fn any, paramNames ...string) (*Func, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("expected a function, got %T", fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("variadic functions are not supported")
	}

	f := &Func{fn: v}
	switch t.NumOut() {
	case 1:
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("second return value must be error, got %s", t.Out(1))
		}
		f.hasErr = true
	default:
		return nil, fmt.Errorf("function must return T or (T, error), got %d results", t.NumOut())
	}

	start := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		f.hasCtx = true
		start = 1
	}
	for i := start; i < t.NumIn(); i++ {
		f.params = append(f.params, t.In(i))
	}

	if len(paramNames) > 0 && len(paramNames) != len(f.params) {
		return nil, fmt.Errorf("got %d parameter names for %d parameters", len(paramNames), len(f.params))
	}
	seen := make(map[string]bool, len(paramNames))
	for _, name := range paramNames {
		if name == "" || seen[name] {
			return nil, fmt.Errorf("parameter names must be unique and non-empty")
		}
		seen[name] = true
	}
	f.names = paramNames
	return f, nil
}

// NumParams returns the number of bindable parameters, excluding a leading context.
func (f *Func) NumParams() int {
	return len(f.params)
}

// paramName returns the declared name of parameter i, or its position.
func (f *Func) paramName(i int) string {
	if i < len(f.names) {
		return f.names[i]
	}
	return "#" + strconv.Itoa(i)
}

// paramIndex returns the position of a named parameter.
func (f *Func) paramIndex(name string) (int, bool) {
	for i, n := range f.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// takesDataframe reports whether parameter i is declared as *core.Dataframe.
func (f *Func) takesDataframe(i int) bool {
	return f.params[i] == dataframeType
}

// call invokes the function with bound arguments.
func (f *Func) call(ctx context.Context, args []any) (any, error) {
	in := make([]reflect.Value, 0, len(args)+1)
	if f.hasCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, arg := range args {
		v, err := f.value(i, arg)
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}

	out := f.fn.Call(in)
	if f.hasErr && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// value converts arg into a reflect.Value assignable to parameter i.
func (f *Func) value(i int, arg any) (reflect.Value, error) {
	want := f.params[i]
	if arg == nil {
		switch want.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, argError(f.paramName(i), "nil is not a valid %s", want)
	}
	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(want) {
		return reflect.Value{}, argError(f.paramName(i), "cannot use %T as %s", arg, want)
	}
	return v, nil
}

package script

import (
	"context"
	"fmt"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprScript is a condition compiled with expr-lang.
type ExprScript struct {
	engine  *ExprScriptingEngine
	program *vm.Program
}

func (s *ExprScript) Evaluate(ctx context.Context, globals map[string]any) (Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := make(map[string]any, len(s.engine.globals)+len(globals))
	for name, value := range s.engine.globals {
		env[name] = value
	}
	for name, value := range globals {
		env[name] = value
	}
	value, err := expr.Run(s.program, env)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate condition: %w", err)
	}
	return &ExprValue{value: value}, nil
}

// ExprScriptingEngine compiles conditions with expr-lang. Like the Risor
// engine, references to names outside the globals fail to compile.
type ExprScriptingEngine struct {
	globals map[string]any
}

func NewExprScriptingEngine(globals map[string]any) *ExprScriptingEngine {
	return &ExprScriptingEngine{globals: globals}
}

// NewExprConditionEngine returns an expr engine that knows the step
// condition globals.
func NewExprConditionEngine() *ExprScriptingEngine {
	return NewExprScriptingEngine(conditionGlobals())
}

func (e *ExprScriptingEngine) Compile(ctx context.Context, code string) (Script, error) {
	program, err := expr.Compile(code, expr.Env(e.globals))
	if err != nil {
		return nil, err
	}
	return &ExprScript{engine: e, program: program}, nil
}

type ExprValue struct {
	value any
}

func (v *ExprValue) Value() any {
	return v.value
}

func (v *ExprValue) IsTruthy() bool {
	return goTruthy(v.value)
}

// goTruthy applies the Risor truthiness rules to a plain Go value.
func goTruthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "false"
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

package script

import "fmt"

// Condition engines selectable by name.
const (
	EngineRisor = "risor"
	EngineExpr  = "expr"
)

// NewCompiler returns the condition compiler for engine. An empty name
// selects Risor.
func NewCompiler(engine string) (Compiler, error) {
	switch engine {
	case "", EngineRisor:
		return NewConditionEngine(), nil
	case EngineExpr:
		return NewExprConditionEngine(), nil
	}
	return nil, fmt.Errorf("unknown script engine %q", engine)
}

func conditionGlobals() map[string]any {
	globals := make(map[string]any, len(ConditionGlobals))
	for _, name := range ConditionGlobals {
		globals[name] = map[string]any{}
	}
	return globals
}

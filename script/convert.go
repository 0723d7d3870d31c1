package script

import (
	"strings"

	"github.com/risor-io/risor/object"
)

// ConvertRisorValueToGo converts a Risor object to a Go value
func ConvertRisorValueToGo(obj object.Object) any {
	switch o := obj.(type) {
	case *object.String:
		return o.Value()
	case *object.Int:
		return o.Value()
	case *object.Float:
		return o.Value()
	case *object.Bool:
		return o.Value()
	case *object.NilType:
		return nil
	case *object.List:
		var result []any
		for _, item := range o.Value() {
			result = append(result, ConvertRisorValueToGo(item))
		}
		return result
	case *object.Map:
		result := make(map[string]any)
		for key, value := range o.Value() {
			result[key] = ConvertRisorValueToGo(value)
		}
		return result
	default:
		return obj.Inspect()
	}
}

// ConvertRisorValueToBool converts a Risor object to a boolean indicating truthiness
func ConvertRisorValueToBool(obj object.Object) bool {
	switch o := obj.(type) {
	case *object.Bool:
		return o.Value()
	case *object.Int:
		return o.Value() != 0
	case *object.Float:
		return o.Value() != 0.0
	case *object.String:
		val := o.Value()
		return val != "" && strings.ToLower(val) != "false"
	case *object.List:
		return len(o.Value()) > 0
	case *object.Map:
		return len(o.Value()) > 0
	case *object.NilType:
		return false
	default:
		return obj.IsTruthy()
	}
}

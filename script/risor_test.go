package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConditionEvaluation(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		globals map[string]any
		want    bool
	}{
		{
			name:    "image count comparison passes",
			code:    `images["before"] >= 2`,
			globals: map[string]any{"images": map[string]any{"before": int64(2)}},
			want:    true,
		},
		{
			name:    "image count comparison fails",
			code:    `images["before"] >= 2`,
			globals: map[string]any{"images": map[string]any{"before": int64(1)}},
			want:    false,
		},
		{
			name:    "field text comparison",
			code:    `fields["vehicle"] == "KA01"`,
			globals: map[string]any{"fields": map[string]any{"vehicle": "KA01"}},
			want:    true,
		},
		{
			name:    "empty list is falsy",
			code:    `checked["service"]`,
			globals: map[string]any{"checked": map[string]any{"service": []any{}}},
			want:    false,
		},
		{
			name: "literal arithmetic",
			code: `1 + 1 == 2`,
			want: true,
		},
	}

	engine := NewConditionEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := engine.Compile(context.Background(), tt.code)
			require.NoError(t, err)
			value, err := s.Evaluate(context.Background(), tt.globals)
			require.NoError(t, err)
			require.Equal(t, tt.want, value.IsTruthy())
		})
	}
}

func TestCompileRejectsInvalidSyntax(t *testing.T) {
	_, err := NewConditionEngine().Compile(context.Background(), "images[ >= 2")
	require.Error(t, err)
}

func TestCompileRejectsUnknownGlobal(t *testing.T) {
	_, err := NewConditionEngine().Compile(context.Background(), "odometer > 0")
	require.Error(t, err)
}

func TestRisorValueConversion(t *testing.T) {
	s, err := NewConditionEngine().Compile(context.Background(), `{"a": [1, 2.5, "x", true, nil]}`)
	require.NoError(t, err)
	value, err := s.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, value.IsTruthy())
	require.Equal(t, map[string]any{"a": []any{int64(1), 2.5, "x", true, nil}}, value.Value())
}

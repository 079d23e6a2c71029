package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_Evaluate(t *testing.T) {
	values := map[string]float64{"sharpe_ratio": 0.8, "total_return_pct": -4}

	tests := []struct {
		expr string
		want bool
	}{
		{"sharpe_ratio < 1", true},
		{"sharpe_ratio >= 0.8", true},
		{"sharpe_ratio > 0.8", false},
		{"sharpe_ratio <= 0.5", false},
		{"sharpe_ratio == 0.8", true},
		{"sharpe_ratio != 0.8", false},
		{"total_return_pct < -2.5", true},
		{"  total_return_pct>-5  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			fired, _, err := Rule{Name: "r", Expr: tt.expr}.Evaluate(values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fired)
		})
	}
}

func TestRule_Validate(t *testing.T) {
	assert.NoError(t, Rule{Name: "dd", Expr: "max_drawdown_pct > 20"}.Validate())
	assert.Error(t, Rule{Expr: "max_drawdown_pct > 20"}.Validate())
	assert.Error(t, Rule{Name: "dd", Expr: "max_drawdown_pct >> 20"}.Validate())
	assert.Error(t, Rule{Name: "dd", Expr: "drawdown > 20"}.Validate())
	assert.Error(t, Rule{Name: "dd", Expr: "max_drawdown_pct > 1.2.3"}.Validate())
}

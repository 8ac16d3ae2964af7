package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/unit"
)

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		expr  string
		scale float64
		dims  unit.Dimensions
	}{
		{"m", 1, unit.Dimensions{unit.LengthDim: 1}},
		{"ft", 0.3048, unit.Dimensions{unit.LengthDim: 1}},
		{"km", 1000, unit.Dimensions{unit.LengthDim: 1}},
		{"mm", 1e-3, unit.Dimensions{unit.LengthDim: 1}},
		{"N*m", 1, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2}},
		{"ft*lbf", 0.3048 * 4.4482216152605, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2}},
		{"kg*m/s**2", 1, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 1, unit.TimeDim: -2}},
		{"m/s^2", 1, unit.Dimensions{unit.LengthDim: 1, unit.TimeDim: -2}},
		{"(m/s)**2", 1, unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2}},
		{"1/s", 1, unit.Dimensions{unit.TimeDim: -1}},
		{"m**-1", 1, unit.Dimensions{unit.LengthDim: -1}},
		{"kN", 1000, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 1, unit.TimeDim: -2}},
		{"MPa", 1e6, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2}},
		{"deg", math.Pi / 180, unit.Dimensions{unit.AngleDim: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			q, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.scale, q.Scale(), 1e-12*math.Max(1, tt.scale))
			assert.True(t, unit.DimensionsMatch(q.dims, unit.New(1, tt.dims)),
				"got %v, want %v", q.Dimensions(), tt.dims)
			assert.Equal(t, tt.expr, q.Expr())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		expr string
		want error
	}{
		{"", ErrSyntax},
		{"furlong", ErrUnknownUnit},
		{"kft", ErrUnknownUnit},
		{"m**", ErrSyntax},
		{"m**x", ErrSyntax},
		{"(m/s", ErrSyntax},
		{"m s", ErrSyntax},
		{"2*m", ErrSyntax},
		{"m$", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Parse(tt.expr)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		in, want float64
	}{
		{"ft to m", "ft", "m", 1, 0.3048},
		{"m to ft", "m", "ft", 1, 3.280839895013123},
		{"lbf to N", "lbf", "N", 1, 4.4482216152605},
		{"torque", "ft*lbf", "N*m", 1, 1.3558179483314004},
		{"pressure", "psi", "Pa", 1, 6894.757293168361},
		{"degC to K", "degC", "K", 0, 273.15},
		{"degF to degC", "degF", "degC", 212, 100},
		{"degC to degF", "degC", "degF", -40, -40},
		{"rpm to rad/s", "rpm", "rad/s", 60, 2 * math.Pi},
		{"hours", "h", "min", 1.5, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertValue(tt.in, tt.from, tt.to)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9*math.Max(1, math.Abs(tt.want)))
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	in := []float64{0.25, -3, 17.5}
	there, err := Convert(in, "ft*lbf", "N*m")
	require.NoError(t, err)
	back, err := Convert(there, "N*m", "ft*lbf")
	require.NoError(t, err)
	assert.InDeltaSlice(t, in, back, 1e-12)
}

func TestConvertUnitless(t *testing.T) {
	in := []float64{1, 2, 3}
	for _, pair := range [][2]string{{"", "m"}, {"m", ""}, {"", ""}, {"ft", "ft"}} {
		out, err := Convert(in, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}

	out, _ := Convert(in, "", "")
	out[0] = 42
	assert.Equal(t, 1.0, in[0], "Convert must not alias its input")
}

func TestIncompatible(t *testing.T) {
	_, err := Convert([]float64{1}, "m", "s")
	assert.ErrorIs(t, err, ErrIncompatible)

	assert.True(t, Compatible("ft*lbf", "J"))
	assert.True(t, Compatible("N*m", "kg*m**2/s**2"))
	assert.False(t, Compatible("N", "N*m"))
	assert.False(t, Compatible("m", "bogus"))
}

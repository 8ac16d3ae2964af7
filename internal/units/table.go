package units

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/unit"
)

// definition is one entry of the symbol table: the SI scale of the symbol,
// its additive offset (absolute temperatures only) and its dimensions.
type definition struct {
	scale      float64
	offset     float64
	dims       unit.Dimensions
	prefixable bool
}

var (
	dimLength  = unit.Dimensions{unit.LengthDim: 1}
	dimMass    = unit.Dimensions{unit.MassDim: 1}
	dimTime    = unit.Dimensions{unit.TimeDim: 1}
	dimTemp    = unit.Dimensions{unit.TemperatureDim: 1}
	dimCurrent = unit.Dimensions{unit.CurrentDim: 1}
	dimAngle   = unit.Dimensions{unit.AngleDim: 1}
	dimMole    = unit.Dimensions{unit.MoleDim: 1}
	dimForce   = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 1, unit.TimeDim: -2}
	dimEnergy  = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2}
	dimPower   = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3}
	dimPress   = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2}
	dimVolt    = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3, unit.CurrentDim: -1}
	dimFreq    = unit.Dimensions{unit.TimeDim: -1}
	dimVolume  = unit.Dimensions{unit.LengthDim: 3}
)

const (
	lbfInNewtons = 4.4482216152605
	lbmInKg      = 0.45359237
	ftInMeters   = 0.3048
)

var symbols = map[string]definition{
	// length
	"m":    {scale: 1, dims: dimLength, prefixable: true},
	"ft":   {scale: ftInMeters, dims: dimLength},
	"inch": {scale: 0.0254, dims: dimLength},
	"yd":   {scale: 0.9144, dims: dimLength},
	"mi":   {scale: 1609.344, dims: dimLength},
	"nmi":  {scale: 1852, dims: dimLength},

	// time
	"s":   {scale: 1, dims: dimTime, prefixable: true},
	"min": {scale: 60, dims: dimTime},
	"h":   {scale: 3600, dims: dimTime},
	"d":   {scale: 86400, dims: dimTime},

	// mass
	"kg":   {scale: 1, dims: dimMass},
	"g":    {scale: 1e-3, dims: dimMass, prefixable: true},
	"lbm":  {scale: lbmInKg, dims: dimMass},
	"slug": {scale: lbfInNewtons / ftInMeters, dims: dimMass},
	"t":    {scale: 1000, dims: dimMass},

	// force, energy, power, pressure
	"N":    {scale: 1, dims: dimForce, prefixable: true},
	"lbf":  {scale: lbfInNewtons, dims: dimForce},
	"J":    {scale: 1, dims: dimEnergy, prefixable: true},
	"Btu":  {scale: 1055.05585262, dims: dimEnergy},
	"W":    {scale: 1, dims: dimPower, prefixable: true},
	"hp":   {scale: 745.69987158227022, dims: dimPower},
	"Pa":   {scale: 1, dims: dimPress, prefixable: true},
	"psi":  {scale: lbfInNewtons / (0.0254 * 0.0254), dims: dimPress},
	"bar":  {scale: 1e5, dims: dimPress},
	"atm":  {scale: 101325, dims: dimPress},
	"Torr": {scale: 101325.0 / 760, dims: dimPress},

	// angle
	"rad": {scale: 1, dims: dimAngle, prefixable: true},
	"deg": {scale: math.Pi / 180, dims: dimAngle},
	"rpm": {scale: 2 * math.Pi / 60, dims: unit.Dimensions{unit.AngleDim: 1, unit.TimeDim: -1}},

	// temperature
	"K":    {scale: 1, dims: dimTemp, prefixable: true},
	"degR": {scale: 5.0 / 9.0, dims: dimTemp},
	"degC": {scale: 1, offset: 273.15, dims: dimTemp},
	"degF": {scale: 5.0 / 9.0, offset: 459.67, dims: dimTemp},

	// electrical, frequency, amount, volume
	"A":   {scale: 1, dims: dimCurrent, prefixable: true},
	"V":   {scale: 1, dims: dimVolt, prefixable: true},
	"Hz":  {scale: 1, dims: dimFreq, prefixable: true},
	"mol": {scale: 1, dims: dimMole, prefixable: true},
	"L":   {scale: 1e-3, dims: dimVolume, prefixable: true},
	"gal": {scale: 3.785411784e-3, dims: dimVolume},
}

// prefixes are tried longest first so that "da" wins over "d".
var prefixes = []struct {
	symbol string
	scale  float64
}{
	{"da", 1e1},
	{"Y", 1e24}, {"Z", 1e21}, {"E", 1e18}, {"P", 1e15}, {"T", 1e12},
	{"G", 1e9}, {"M", 1e6}, {"k", 1e3}, {"h", 1e2},
	{"d", 1e-1}, {"c", 1e-2}, {"m", 1e-3}, {"u", 1e-6}, {"n", 1e-9},
	{"p", 1e-12}, {"f", 1e-15}, {"a", 1e-18}, {"z", 1e-21}, {"y", 1e-24},
}

// lookup resolves a bare symbol, falling back to an SI prefix on a
// prefixable base symbol.
func lookup(name string) (definition, bool) {
	if def, ok := symbols[name]; ok {
		return def, true
	}
	for _, p := range prefixes {
		base, ok := strings.CutPrefix(name, p.symbol)
		if !ok || base == "" {
			continue
		}
		def, ok := symbols[base]
		if !ok || !def.prefixable {
			continue
		}
		def.scale *= p.scale
		return def, true
	}
	return definition{}, false
}

package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arcMilliSecond = 1.0 / 3600.0 / 1000.0

func TestIsValid(t *testing.T) {
	cases := []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"lisbon", Coordinate{38.7223, -9.1393}, true},
		{"north pole", Coordinate{90, 0.5}, true},
		{"antimeridian", Coordinate{-12, -180}, true},
		{"sentinel", Coordinate{0, 0}, false},
		{"equator only", Coordinate{0, 12.5}, true},
		{"lat too high", Coordinate{90.0001, 10}, false},
		{"lon too low", Coordinate{10, -180.5}, false},
		{"nan", Coordinate{math.NaN(), 10}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValid(tc.c))
			assert.Equal(t, tc.want, tc.c.Valid())
		})
	}
}

func TestToDecimalRationals(t *testing.T) {
	v, err := ToDecimal(R(38, 1), R(46, 1), R(10280, 1000), "N")
	require.NoError(t, err)
	assert.InDelta(t, 38.769522, v, 1e-6)

	v, err = ToDecimal(R(9, 1), R(7, 1), R(46920, 1000), "W")
	require.NoError(t, err)
	assert.InDelta(t, -9.129700, v, 1e-6)
}

func TestToDecimalAcceptsDecimals(t *testing.T) {
	v, err := ToDecimal(D(33), D(51), D(54.5), "S")
	require.NoError(t, err)
	assert.InDelta(t, -(33 + 51.0/60 + 54.5/3600), v, 1e-9)
}

func TestToDecimalMissingRefKeepsSign(t *testing.T) {
	v, err := ToDecimal(R(10, 1), R(30, 1), R(0, 1), "")
	require.NoError(t, err)
	assert.InDelta(t, 10.5, v, 1e-9)
}

func TestToDecimalZeroDenominator(t *testing.T) {
	_, err := ToDecimal(R(10, 1), R(30, 0), R(0, 1), "N")
	assert.ErrorIs(t, err, ErrZeroDenominator)
}

func TestIsNegativeRef(t *testing.T) {
	assert.True(t, IsNegativeRef("S"))
	assert.True(t, IsNegativeRef("w\x00"))
	assert.True(t, IsNegativeRef(" S "))
	assert.False(t, IsNegativeRef("N"))
	assert.False(t, IsNegativeRef(""))
}

func TestFromDecimal(t *testing.T) {
	d := FromDecimal(-9.1297)
	assert.Equal(t, Rational{9, 1}, d[0])
	assert.Equal(t, Rational{7, 1}, d[1])
	assert.Equal(t, uint32(1000), d[2].Den)
	assert.Equal(t, uint32(46920), d[2].Num)
}

func TestFromDecimalCarry(t *testing.T) {
	// 59.99999 arc-seconds rounds up to a full minute.
	v := 10 + 59.0/60 + 59.99999/3600
	d := FromDecimal(v)
	assert.Equal(t, Rational{11, 1}, d[0])
	assert.Equal(t, Rational{0, 1}, d[1])
	assert.Equal(t, Rational{0, 1000}, d[2])
}

func TestRoundTrip(t *testing.T) {
	values := []float64{0.000001, 1.5, 38.7695, -9.1297, 45.123456789, -33.8688, 89.999999, 179.9999999, -180}
	for _, v := range values {
		got, err := FromDecimal(v).Decimal()
		require.NoError(t, err)
		assert.InDelta(t, math.Abs(v), got, arcMilliSecond, "value %v", v)
	}
}

func TestRefs(t *testing.T) {
	assert.Equal(t, "N", LatitudeRef(12))
	assert.Equal(t, "S", LatitudeRef(-0.1))
	assert.Equal(t, "E", LongitudeRef(0.1))
	assert.Equal(t, "W", LongitudeRef(-120))
}

func TestISO6709(t *testing.T) {
	assert.Equal(t, "+38.769500-009.129700/", Coordinate{38.7695, -9.1297}.ISO6709())
	assert.Equal(t, "-05.100000+120.000000/", Coordinate{-5.1, 120}.ISO6709())
}

func TestDMSString(t *testing.T) {
	assert.Equal(t, "9 7 46.920", FromDecimal(-9.1297).String())
}

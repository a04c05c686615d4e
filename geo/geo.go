// Package geo converts decimal-degree coordinates into the degree/minute/second
// rationals that EXIF GPS tags carry.
package geo

import (
	"fmt"
	"math"
)

// Triple is a sexagesimal (degrees, minutes, seconds) decomposition of an angle.
type Triple struct {
	Degrees int
	Minutes int
	Seconds float64
}

// DecimalToTriple splits degrees into a Triple by truncating toward zero at
// each step. No rounding correction is applied, so negative input yields
// negative components.
func DecimalToTriple(degrees float64) Triple {
	d := int(degrees)
	m := int((degrees - float64(d)) * 60)
	s := ((degrees-float64(d))*60 - float64(m)) * 60
	return Triple{Degrees: d, Minutes: m, Seconds: s}
}

// Decimal recomposes the triple as d + m/60 + s/3600.
func (t Triple) Decimal() float64 {
	return float64(t.Degrees) + float64(t.Minutes)/60 + t.Seconds/3600
}

// Rationals returns the magnitudes of the three components. The sign lives in
// the hemisphere reference, not in the rationals.
func (t Triple) Rationals() []Rational {
	return []Rational{
		NewRational(float64(t.Degrees)),
		NewRational(float64(t.Minutes)),
		NewRational(t.Seconds),
	}
}

func (t Triple) String() string {
	return fmt.Sprintf("%d°%d'%g\"", t.Degrees, t.Minutes, t.Seconds)
}

// LatitudeRef is "S" when the degree component is negative, "N" otherwise.
// Only Degrees is consulted: -0.5 has Degrees == 0 and reports "N".
func LatitudeRef(t Triple) string {
	if t.Degrees < 0 {
		return "S"
	}
	return "N"
}

// LongitudeRef is "W" when the degree component is negative, "E" otherwise.
func LongitudeRef(t Triple) string {
	if t.Degrees < 0 {
		return "W"
	}
	return "E"
}

// AltitudeRef is 0 (above sea level) for a strictly positive altitude and 1
// for everything else, zero included.
func AltitudeRef(alt float64) byte {
	if alt > 0 {
		return 0
	}
	return 1
}

// Rational is an unsigned numerator/denominator pair as stored in EXIF
// RATIONAL tags.
type Rational struct {
	Numerator   uint32
	Denominator uint32
}

const maxDenominator = 1000000

// NewRational encodes |v|. Whole numbers get a denominator of 1; anything else
// uses the largest power-of-ten denominator up to 10^6 that keeps the
// numerator inside uint32. The scaled value is truncated, never rounded.
func NewRational(v float64) Rational {
	v = math.Abs(v)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Rational{Numerator: 0, Denominator: 1}
	}
	if v >= math.MaxUint32 {
		return Rational{Numerator: math.MaxUint32, Denominator: 1}
	}
	if v == math.Trunc(v) {
		return Rational{Numerator: uint32(v), Denominator: 1}
	}

	den := uint64(maxDenominator)
	for den > 1 && v*float64(den) > math.MaxUint32 {
		den /= 10
	}
	num := uint64(math.Trunc(v * float64(den)))
	if num == 0 {
		return Rational{Numerator: 0, Denominator: 1}
	}
	g := gcd(num, den)
	return Rational{Numerator: uint32(num / g), Denominator: uint32(den / g)}
}

// Float64 returns the value of r; a zero denominator yields 0.
func (r Rational) Float64() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

package fixed

import (
	"math"
	"strconv"
)

// Fixed2 is a signed fixed-point number with two decimal places, stored as hundredths.
type Fixed2 int64

const scale = 100

func FromInt(n int) Fixed2 { return Fixed2(int64(n) * scale) }

// FromFloat rounds half away from zero to the nearest hundredth.
func FromFloat(f float64) Fixed2 {
	return Fixed2(math.Round(f * scale))
}

func (v Fixed2) Add(o Fixed2) Fixed2 { return v + o }
func (v Fixed2) Sub(o Fixed2) Fixed2 { return v - o }
func (v Fixed2) Neg() Fixed2         { return -v }

// Mul scales by a float factor, rounding the result to the nearest hundredth.
func (v Fixed2) Mul(f float64) Fixed2 {
	return FromFloat(v.Float() * f)
}

func (v Fixed2) Less(o Fixed2) bool { return v < o }
func (v Fixed2) IsNegative() bool   { return v < 0 }

func (v Fixed2) Float() float64 { return float64(v) / scale }

func (v Fixed2) String() string {
	return strconv.FormatFloat(v.Float(), 'f', -1, 64)
}

func (v Fixed2) MarshalJSON() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Fixed2) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*v = FromFloat(f)
	return nil
}

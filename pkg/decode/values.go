package decode

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/apache/arrow/go/v14/arrow/decimal128"
)

// TZOffsetBias is added by producers to the zone offset (in minutes) of
// TIMESTAMP_TZ values so the stored field is never negative.
const TZOffsetBias = 1440

// powersOfTen[i] == 10^i for the range representable in an int64.
var powersOfTen = [...]int64{
	1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000,
	10000000000, 100000000000, 1000000000000, 10000000000000, 100000000000000,
	1000000000000000, 10000000000000000, 100000000000000000, 1000000000000000000,
}

// Decimal is an exact fixed-point number: Unscaled * 10^-Scale.
type Decimal struct {
	Unscaled  decimal128.Num
	Precision int32
	Scale     int32
}

// BigInt returns the unscaled value.
func (d Decimal) BigInt() *big.Int {
	return d.Unscaled.BigInt()
}

// Rat returns the exact value as a rational.
func (d Decimal) Rat() *big.Rat {
	r := new(big.Rat).SetInt(d.BigInt())
	if d.Scale > 0 {
		den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale)), nil)
		r.Quo(r, new(big.Rat).SetInt(den))
	}
	return r
}

// Float64 returns the nearest float64. This is the only lossy accessor.
func (d Decimal) Float64() float64 {
	f, _ := d.Rat().Float64()
	return f
}

// Equal reports whether d and o denote the same number, regardless of scale.
func (d Decimal) Equal(o Decimal) bool {
	return d.Rat().Cmp(o.Rat()) == 0
}

// String formats d with exactly Scale fractional digits.
func (d Decimal) String() string {
	s := d.BigInt().String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if scale := int(d.Scale); scale > 0 {
		if len(s) <= scale {
			s = strings.Repeat("0", scale-len(s)+1) + s
		}
		s = s[:len(s)-scale] + "." + s[len(s)-scale:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

// MarshalJSON emits the decimal as a bare JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// Date is a calendar date stored as days since 1970-01-01.
type Date struct {
	Days int32
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Unix(int64(d.Days)*86400, 0).UTC()
}

func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// TimeOfDay is a wall-clock time stored as Units of 10^-Scale seconds
// since midnight.
type TimeOfDay struct {
	Units int64
	Scale int
}

// Nanos returns nanoseconds since midnight.
func (t TimeOfDay) Nanos() int64 {
	return t.Units * powersOfTen[9-t.Scale]
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t.Nanos())
}

func (t TimeOfDay) String() string {
	ns := t.Nanos()
	sec := ns / 1e9
	s := fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec/60)%60, sec%60)
	return s + fraction(int32(ns%1e9), t.Scale)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// Instant is a point on the UTC timeline. Nanos is always in [0, 1e9).
type Instant struct {
	Seconds int64
	Nanos   int32
}

// Time returns the instant in UTC.
func (i Instant) Time() time.Time {
	return time.Unix(i.Seconds, int64(i.Nanos)).UTC()
}

// UnixNano returns nanoseconds since the epoch. ok is false for instants
// outside roughly 1678..2262, which do not fit in an int64.
func (i Instant) UnixNano() (ns int64, ok bool) {
	const perSecond = int64(time.Second)
	if i.Seconds > (math.MaxInt64-int64(i.Nanos))/perSecond || i.Seconds < math.MinInt64/perSecond {
		return 0, false
	}
	return i.Seconds*perSecond + int64(i.Nanos), true
}

// instantFromUnits splits v, counted in units of 10^-scale seconds.
func instantFromUnits(v int64, scale int) Instant {
	p := powersOfTen[scale]
	sec, rem := v/p, v%p
	if rem < 0 {
		sec--
		rem += p
	}
	return Instant{Seconds: sec, Nanos: int32(rem * powersOfTen[9-scale])}
}

// instantFromParts combines epoch seconds with a nanosecond fraction.
func instantFromParts(sec, nanos int64) Instant {
	sec += nanos / 1e9
	nanos %= 1e9
	if nanos < 0 {
		sec--
		nanos += 1e9
	}
	return Instant{Seconds: sec, Nanos: int32(nanos)}
}

// fraction renders the first scale digits of nanos, truncating.
func fraction(nanos int32, scale int) string {
	if scale <= 0 {
		return ""
	}
	return "." + fmt.Sprintf("%09d", nanos)[:scale]
}

const wallLayout = "2006-01-02 15:04:05"

// TimestampNTZ is a timestamp without time zone. The instant is
// interpreted as wall-clock time in UTC.
type TimestampNTZ struct {
	Instant
	Scale int
}

func (t TimestampNTZ) String() string {
	return t.Time().Format(wallLayout) + fraction(t.Nanos, t.Scale)
}

func (t TimestampNTZ) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// TimestampLTZ is an instant to be presented in the consumer's session
// time zone.
type TimestampLTZ struct {
	Instant
	Scale int
}

// In returns the instant in loc.
func (t TimestampLTZ) In(loc *time.Location) time.Time {
	return t.Instant.Time().In(loc)
}

func (t TimestampLTZ) String() string {
	return t.Time().Format(wallLayout) + fraction(t.Nanos, t.Scale) + " Z"
}

func (t TimestampLTZ) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Time().Format(time.RFC3339Nano) + `"`), nil
}

// TimestampTZ is an instant with an explicit zone offset. Offset is the
// stored field, unchanged; see UTCOffsetMinutes.
type TimestampTZ struct {
	Instant
	Offset int32
	Scale  int
}

// UTCOffsetMinutes returns the signed zone offset from UTC.
func (t TimestampTZ) UTCOffsetMinutes() int {
	return int(t.Offset) - TZOffsetBias
}

// Location returns a fixed zone for the offset.
func (t TimestampTZ) Location() *time.Location {
	m := t.UTCOffsetMinutes()
	sign := '+'
	abs := m
	if m < 0 {
		sign = '-'
		abs = -m
	}
	return time.FixedZone(fmt.Sprintf("%c%02d:%02d", sign, abs/60, abs%60), m*60)
}

// Time returns the instant in its own zone.
func (t TimestampTZ) Time() time.Time {
	return t.Instant.Time().In(t.Location())
}

func (t TimestampTZ) String() string {
	tt := t.Time()
	return tt.Format(wallLayout) + fraction(t.Nanos, t.Scale) + " " + tt.Format("-07:00")
}

func (t TimestampTZ) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Time().Format(time.RFC3339Nano) + `"`), nil
}

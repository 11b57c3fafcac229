// Package logical maps logicalType metadata strings onto a closed set of
// logical types.
package logical

import "strings"

// Type is an application-level type layered over a physical Arrow encoding.
type Type uint8

const (
	Unknown Type = iota
	Any
	Array
	Binary
	Boolean
	Char
	Date
	Fixed
	Object
	Real
	Text
	Time
	Timestamp
	TimestampLTZ
	TimestampNTZ
	TimestampTZ
	Variant
)

var names = [...]string{
	Unknown:      "UNKNOWN",
	Any:          "ANY",
	Array:        "ARRAY",
	Binary:       "BINARY",
	Boolean:      "BOOLEAN",
	Char:         "CHAR",
	Date:         "DATE",
	Fixed:        "FIXED",
	Object:       "OBJECT",
	Real:         "REAL",
	Text:         "TEXT",
	Time:         "TIME",
	Timestamp:    "TIMESTAMP",
	TimestampLTZ: "TIMESTAMP_LTZ",
	TimestampNTZ: "TIMESTAMP_NTZ",
	TimestampTZ:  "TIMESTAMP_TZ",
	Variant:      "VARIANT",
}

var byName = func() map[string]Type {
	m := make(map[string]Type, len(names))
	for t, n := range names {
		if Type(t) != Unknown {
			m[n] = Type(t)
		}
	}
	return m
}()

// Resolve returns the logical type named by s. Matching ignores case and
// surrounding whitespace; anything unrecognised is Unknown.
func Resolve(s string) Type {
	if t, ok := byName[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return t
	}
	return Unknown
}

func (t Type) String() string {
	if int(t) < len(names) {
		return names[t]
	}
	return names[Unknown]
}

// IsText reports whether t is decoded as plain text. Semi-structured
// types are delivered as their serialized text form.
func (t Type) IsText() bool {
	switch t {
	case Any, Array, Char, Object, Text, Variant:
		return true
	default:
		return false
	}
}

// IsTimestamp reports whether t is one of the zoned or unzoned timestamp
// families.
func (t Type) IsTimestamp() bool {
	switch t {
	case TimestampLTZ, TimestampNTZ, TimestampTZ:
		return true
	default:
		return false
	}
}

// Types returns every known logical type except Unknown, in declaration order.
func Types() []Type {
	out := make([]Type, 0, len(names)-1)
	for t := range names {
		if Type(t) != Unknown {
			out = append(out, Type(t))
		}
	}
	return out
}

package decode

// Kind tags one (logical type, physical encoding, output mode) combination.
// The set is closed; Decoder.Decode switches over it.
type Kind uint8

const (
	KindInt Kind = iota
	KindDecimalFromInt
	KindDecimalFromDecimal128
	KindFloat
	KindBoolean
	KindText
	KindBinary
	KindDate
	KindTime
	KindTimestampNTZOneField
	KindTimestampNTZTwoField
	KindTimestampLTZOneField
	KindTimestampLTZTwoField
	KindTimestampTZTwoField
	KindTimestampTZThreeField

	// Array-backed variants write into a dense.Column as they decode.
	KindDenseInt
	KindDenseDecimal
	KindDenseFloat
	KindDenseBoolean
	KindDenseDate
	KindDenseTimestampNTZOneField
	KindDenseTimestampNTZTwoField
	KindDenseTimestampLTZOneField
	KindDenseTimestampLTZTwoField

	numKinds
)

var kindNames = [numKinds]string{
	KindInt:                       "Int",
	KindDecimalFromInt:            "DecimalFromInt",
	KindDecimalFromDecimal128:     "DecimalFromDecimal128",
	KindFloat:                     "Float",
	KindBoolean:                   "Boolean",
	KindText:                      "Text",
	KindBinary:                    "Binary",
	KindDate:                      "Date",
	KindTime:                      "Time",
	KindTimestampNTZOneField:      "TimestampNTZOneField",
	KindTimestampNTZTwoField:      "TimestampNTZTwoField",
	KindTimestampLTZOneField:      "TimestampLTZOneField",
	KindTimestampLTZTwoField:      "TimestampLTZTwoField",
	KindTimestampTZTwoField:       "TimestampTZTwoField",
	KindTimestampTZThreeField:     "TimestampTZThreeField",
	KindDenseInt:                  "DenseInt",
	KindDenseDecimal:              "DenseDecimal",
	KindDenseFloat:                "DenseFloat",
	KindDenseBoolean:              "DenseBoolean",
	KindDenseDate:                 "DenseDate",
	KindDenseTimestampNTZOneField: "DenseTimestampNTZOneField",
	KindDenseTimestampNTZTwoField: "DenseTimestampNTZTwoField",
	KindDenseTimestampLTZOneField: "DenseTimestampLTZOneField",
	KindDenseTimestampLTZTwoField: "DenseTimestampLTZTwoField",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return "Invalid"
}

// ArrayBacked reports whether k writes into a dense buffer.
func (k Kind) ArrayBacked() bool {
	return k >= KindDenseInt && k < numKinds
}

package decode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
)

// Field metadata keys written by the producer.
const (
	MetaLogicalType = "logicalType"
	MetaScale       = "scale"
	MetaPrecision   = "precision"
	MetaByteLength  = "byteLength"
)

const (
	defaultPrecision     = 38
	defaultTemporalScale = 9
	maxDecimalPrecision  = 38
	maxTemporalScale     = 9
)

func lookup(md arrow.Metadata, key string) (string, bool) {
	idx := md.FindKey(key)
	if idx < 0 {
		return "", false
	}
	return md.Values()[idx], true
}

// param is one numeric metadata value, possibly overridden by the caller.
type param struct {
	key      string
	override *int
}

// resolve returns the override or the parsed metadata value. found is
// false when neither is present.
func (p param) resolve(md arrow.Metadata) (v int, found bool, err error) {
	if p.override != nil {
		return *p.override, true, nil
	}
	raw, present := lookup(md, p.key)
	if !present {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, true, fmt.Errorf("%s %q is not an integer", p.key, raw)
	}
	return n, true, nil
}

func checkRange(key string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %d out of range [%d, %d]", key, v, lo, hi)
	}
	return nil
}

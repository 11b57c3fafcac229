package fixtures

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

// SampleColumns names the columns of a Sample batch, in order.
var SampleColumns = []string{
	"id", "amount", "balance", "name", "active", "ratio", "day", "payload",
	"at", "created_ntz", "created_ltz", "created_tz", "created_tz16",
}

// Sample builds batch number batch of a multi-batch sample with rows rows.
// It carries one column per decoder family; every fifth row of the
// nullable columns is null.
func Sample(mem memory.Allocator, batch, rows int) arrow.Record {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	var (
		ids       = make([]int64, rows)
		amounts   = make([]int32, rows)
		balances  = make([]string, rows)
		names     = make([]string, rows)
		active    = make([]bool, rows)
		ratios    = make([]float64, rows)
		days      = make([]int32, rows)
		payloads  = make([][]byte, rows)
		times     = make([]int64, rows)
		millis    = make([]int64, rows)
		epochs    = make([]int64, rows)
		fractions = make([]int64, rows)
		epochSecs = make([]int64, rows)
		zones     = make([]int64, rows)
		valid     = make([]bool, rows)
	)
	for r := 0; r < rows; r++ {
		n := int64(batch*rows + r)
		ids[r] = n
		amounts[r] = int32(n*125 - 5000)
		balances[r] = strconv.FormatInt(n, 10) + "00000000000000000001"
		names[r] = fmt.Sprintf("row-%d", n)
		active[r] = n%2 == 0
		ratios[r] = float64(n) / 3
		days[r] = int32(19000 + n)
		payloads[r] = []byte{byte(n), byte(n >> 8)}
		times[r] = (n * 3661 % 86400) * 1_000_000_000
		millis[r] = 1_700_000_000_123 + n*1000
		epochs[r] = 1_700_000_000 + n
		fractions[r] = 123_456_789
		epochSecs[r] = 1_700_000_000 + n*60
		zones[r] = 1440 + (n%5-2)*90
		valid[r] = n%5 != 4
	}

	return Batch(
		Col("id", Int64s(mem, ids, nil), Meta("FIXED", "scale", "0", "precision", "18")),
		Col("amount", Int32s(mem, amounts, valid), Meta("FIXED", "scale", "2", "precision", "9")),
		Col("balance", Decimals(mem, 38, 4, balances, valid), Meta("FIXED", "scale", "4", "precision", "38")),
		Col("name", Strings(mem, names, valid), Meta("TEXT")),
		Col("active", Bools(mem, active, nil), Meta("BOOLEAN")),
		Col("ratio", Float64s(mem, ratios, valid), Meta("REAL")),
		Col("day", Date32s(mem, days, nil), Meta("DATE")),
		Col("payload", Binaries(mem, payloads, valid), Meta("BINARY")),
		Col("at", Int64s(mem, times, nil), Meta("TIME", "scale", "9")),
		Col("created_ntz", Int64s(mem, millis, nil), Meta("TIMESTAMP_NTZ", "scale", "3")),
		Col("created_ltz", Struct(mem, TwoFieldTimestamp, nil, epochs, fractions), Meta("TIMESTAMP_LTZ", "scale", "9")),
		Col("created_tz", Struct(mem, TwoFieldTimestampTZ, valid, epochSecs, zones), Meta("TIMESTAMP_TZ", "scale", "3", "byteLength", "8")),
		Col("created_tz16", Struct(mem, ThreeFieldTimestampTZ, nil, epochs, fractions, zones), Meta("TIMESTAMP_TZ", "scale", "9", "byteLength", "16")),
	)
}

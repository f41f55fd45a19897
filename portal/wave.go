package portal

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DateLayout is the long en-US date used for every wave:
// weekday, month name, numeric day and year.
const DateLayout = "Monday, January 2, 2006"

// Wave is one message recorded by the contract.
type Wave struct {
	Address   common.Address
	Timestamp time.Time
	Date      string
	Message   string
}

// rawWave mirrors the contract's Wave struct; field order and types must match the ABI tuple.
type rawWave struct {
	Waver     common.Address
	Message   string
	Timestamp *big.Int
}

// newWaveEvent mirrors the NewWave event fields.
type newWaveEvent struct {
	From      common.Address
	Timestamp *big.Int
	Message   string
}

// NewWave builds a Wave from raw contract values. Bulk fetches and live
// notifications both go through here so their field mapping is identical.
func NewWave(from common.Address, timestamp *big.Int, message string, loc *time.Location) Wave {
	ts := unixTime(timestamp, loc)
	return Wave{
		Address:   from,
		Timestamp: ts,
		Date:      FormatDate(ts),
		Message:   message,
	}
}

// FormatDate renders t with DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func unixTime(ts *big.Int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	if ts == nil || !ts.IsInt64() {
		return time.Unix(0, 0).In(loc)
	}
	return time.Unix(ts.Int64(), 0).In(loc)
}

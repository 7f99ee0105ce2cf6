package generator

const (
	// RowStart is where the row enumeration begins.
	RowStart = 5
	// RowStop is the exclusive upper limit of the drawn bound.
	RowStop = 1001
	// MaxRows is the largest number of data rows a file can get.
	MaxRows = RowStop - 1 - RowStart
)

// IntSource draws a non-negative integer below n.
type IntSource interface {
	Intn(n int) int
}

// RowCount draws an upper bound from [RowStart, RowStop) and returns how many rows
// lie between RowStart and that bound. The result is in [0, MaxRows].
func RowCount(src IntSource) int {
	upper := RowStart + src.Intn(RowStop-RowStart)
	return upper - RowStart
}

// Package position computes ordering keys for tickets inside a
// (team, status) partition. The functions here are pure; reading the
// current partition state and shifting neighbours happens in the
// repository layer inside a transaction.
package position

// Append returns the position for a ticket added to the end of a
// partition whose current maximum position is maxExisting. An empty
// partition has an effective maximum of 0, so the first position is 1.
//
// Two concurrent creates may both observe the same maximum and produce
// equal positions. That is accepted: equal positions are never an
// error, display order falls back to creation time and id.
func Append(maxExisting int) int {
	if maxExisting < 0 {
		maxExisting = 0
	}
	return maxExisting + 1
}

// Clamp normalizes a client-supplied destination index for a partition
// currently holding count tickets. Positions are 1-based; a ticket can
// be placed at any occupied slot or directly after the last one.
func Clamp(pos, count int) int {
	if pos < 1 {
		return 1
	}
	if pos > count+1 {
		return count + 1
	}
	return pos
}

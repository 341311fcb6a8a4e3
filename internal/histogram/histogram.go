// Package histogram provides the 26-bucket letter-frequency table computed by
// worker processes, together with its two encodings:
//
//   - a binary wire form (26 fixed-width counters, native byte order, no
//     framing — exactly one message ever crosses a result pipe), and
//   - the persisted text form (26 newline-terminated "letter=count" lines in
//     alphabetical order).
//
// Counting is pure and deterministic: the same input bytes always produce the
// same table, regardless of how the input is split or reordered.
package histogram

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Buckets is the number of counters in a Histogram, one per letter a-z.
const Buckets = 26

// BinarySize is the exact length in bytes of the wire encoding.
const BinarySize = Buckets * 4

// Histogram is an ordered letter-frequency table. Index i holds the count of
// the letter 'a'+i, tallied case-insensitively. The alphabetical order is
// significant: both encodings emit buckets in index order.
type Histogram [Buckets]uint32

// Count scans data and tallies alphabetic bytes case-insensitively.
// Non-alphabetic bytes are ignored; empty input yields the zero Histogram.
func Count(data []byte) Histogram {
	var h Histogram
	for _, b := range data {
		switch {
		case b >= 'a' && b <= 'z':
			h[b-'a']++
		case b >= 'A' && b <= 'Z':
			h[b-'A']++
		}
	}
	return h
}

// Total returns the sum of all buckets, i.e. the number of alphabetic bytes
// that were counted.
func (h Histogram) Total() uint64 {
	var t uint64
	for _, c := range h {
		t += uint64(c)
	}
	return t
}

// MarshalBinary encodes the histogram as 26 native-order uint32 counters.
func (h Histogram) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, BinarySize)
	for _, c := range h {
		buf = binary.NativeEndian.AppendUint32(buf, c)
	}
	return buf, nil
}

// UnmarshalBinary decodes a buffer produced by MarshalBinary. The buffer must
// be exactly BinarySize bytes; anything shorter is a dead worker's partial
// transmission and is the caller's "no usable data" case, not ours.
func (h *Histogram) UnmarshalBinary(data []byte) error {
	if len(data) != BinarySize {
		return fmt.Errorf("histogram payload must be %d bytes, got %d", BinarySize, len(data))
	}
	for i := range h {
		h[i] = binary.NativeEndian.Uint32(data[i*4:])
	}
	return nil
}

// WriteText writes the persisted form: 26 newline-terminated lines
// "<letter>=<count>", a through z.
func (h Histogram) WriteText(w io.Writer) error {
	var sb strings.Builder
	for i, c := range h {
		fmt.Fprintf(&sb, "%c=%d\n", 'a'+byte(i), c)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

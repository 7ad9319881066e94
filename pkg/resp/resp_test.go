package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArrayCommand(t *testing.T) {
	d := DecodeCommand([]byte("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"))
	require.Equal(t, Ready, d.Outcome)
	assert.Equal(t, [][]byte{[]byte("GET"), []byte("k")}, d.Args)
	assert.Equal(t, len("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"), d.Consumed)
}

func TestDecodeInlineCommand(t *testing.T) {
	d := DecodeCommand([]byte("PING\r\n"))
	require.Equal(t, Ready, d.Outcome)
	assert.Equal(t, [][]byte{[]byte("PING")}, d.Args)
	assert.Equal(t, len("PING\r\n"), d.Consumed)
}

func TestDecodeInlineBareLF(t *testing.T) {
	d := DecodeCommand([]byte("PING\n"))
	require.Equal(t, Ready, d.Outcome)
	assert.Equal(t, [][]byte{[]byte("PING")}, d.Args)
}

func TestDecodeInlineMultipleSpaces(t *testing.T) {
	d := DecodeCommand([]byte("SET  k   v\r\n"))
	require.Equal(t, Ready, d.Outcome)
	assert.Equal(t, [][]byte{[]byte("SET"), []byte("k"), []byte("v")}, d.Args)
}

func TestDecodeInlineEmptyLineIsProtocolError(t *testing.T) {
	d := DecodeCommand([]byte("\r\n"))
	assert.Equal(t, ProtocolError, d.Outcome)
}

func TestDecodeArrayBareLFInHeaderIsProtocolError(t *testing.T) {
	d := DecodeCommand([]byte("*2\n$3\r\nGET\r\n"))
	assert.Equal(t, ProtocolError, d.Outcome)
}

func TestDecodeArrayWrongSigilIsProtocolError(t *testing.T) {
	d := DecodeCommand([]byte("*1\r\nXPING\r\n"))
	assert.Equal(t, ProtocolError, d.Outcome)
}

func TestDecodeArrayNegativeLengthIsProtocolError(t *testing.T) {
	d := DecodeCommand([]byte("*-5\r\n"))
	assert.Equal(t, ProtocolError, d.Outcome)
}

func TestDecodeIncompleteOnEmptyBuffer(t *testing.T) {
	d := DecodeCommand(nil)
	assert.Equal(t, Incomplete, d.Outcome)
	assert.Equal(t, 0, d.Consumed)
}

func TestDecodeIncrementalAcrossEverySplitPoint(t *testing.T) {
	full := []byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$5\r\nhello\r\n")

	for split := 0; split <= len(full); split++ {
		d := DecodeCommand(full[:split])
		if split == len(full) {
			require.Equal(t, Ready, d.Outcome, "split=%d", split)
			assert.Equal(t, len(full), d.Consumed)
			continue
		}
		assert.Equal(t, Incomplete, d.Outcome, "split=%d should be incomplete", split)
		assert.Equal(t, 0, d.Consumed)
	}
}

func TestDecodeBinarySafeBulkPayload(t *testing.T) {
	payload := []byte{0x00, '\r', '\n', 0xff}
	buf := []byte("*1\r\n$4\r\n")
	buf = append(buf, payload...)
	buf = append(buf, '\r', '\n')

	d := DecodeCommand(buf)
	require.Equal(t, Ready, d.Outcome)
	require.Len(t, d.Args, 1)
	assert.Equal(t, payload, d.Args[0])
}

func TestDecodeRoundTripConsumedExactlyMatchesInput(t *testing.T) {
	full := []byte("*2\r\n$4\r\nECHO\r\n$2\r\nhi\r\n")
	trailing := []byte("*1\r\n$4\r\nPING\r\n")
	buf := append(append([]byte{}, full...), trailing...)

	d := DecodeCommand(buf)
	require.Equal(t, Ready, d.Outcome)
	assert.Equal(t, len(full), d.Consumed)

	next := DecodeCommand(buf[d.Consumed:])
	require.Equal(t, Ready, next.Outcome)
	assert.Equal(t, [][]byte{[]byte("PING")}, next.Args)
}

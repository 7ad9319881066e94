package resp

import (
	"strconv"
)

// EncodeSimpleString renders a "+<text>\r\n" reply. Callers must ensure text
// contains no CR or LF.
func EncodeSimpleString(text string) []byte {
	buf := make([]byte, 0, len(text)+3)
	buf = append(buf, '+')
	buf = append(buf, text...)
	return append(buf, '\r', '\n')
}

// EncodeError renders a "-ERR <text>\r\n" reply. The ERR token is a fixed
// prefix ahead of every error message (§4.1.3, §7).
func EncodeError(text string) []byte {
	buf := make([]byte, 0, len(text)+8)
	buf = append(buf, '-', 'E', 'R', 'R', ' ')
	buf = append(buf, text...)
	return append(buf, '\r', '\n')
}

// EncodeInteger renders a ":<decimal>\r\n" reply for a signed 64-bit value.
func EncodeInteger(n int64) []byte {
	buf := make([]byte, 0, 24)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, n, 10)
	return append(buf, '\r', '\n')
}

// EncodeBulkString renders "$<L>\r\n<L bytes>\r\n" for a present value.
func EncodeBulkString(data []byte) []byte {
	buf := make([]byte, 0, len(data)+16)
	buf = append(buf, '$')
	buf = strconv.AppendInt(buf, int64(len(data)), 10)
	buf = append(buf, '\r', '\n')
	buf = append(buf, data...)
	return append(buf, '\r', '\n')
}

// EncodeNullBulk renders "$-1\r\n", the null bulk string.
func EncodeNullBulk() []byte {
	return []byte("$-1\r\n")
}

// EncodeNullArray renders "*-1\r\n", the null array.
func EncodeNullArray() []byte {
	return []byte("*-1\r\n")
}

// EncodeArrayHeader renders "*<N>\r\n" for an array of n following items.
func EncodeArrayHeader(n int) []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(n), 10)
	return append(buf, '\r', '\n')
}

// EncodeCommand renders args as a RESP array-of-bulk-strings request, the
// wire form clients send and DecodeCommand's array grammar accepts.
func EncodeCommand(args [][]byte) []byte {
	return EncodeBulkArray(args)
}

// EncodeBulkArray renders a complete array reply whose elements are all
// present bulk strings (used by SMEMBERS, KEYS, HGETALL, HKEYS, HVALS,
// LRANGE, and ZRANGE without WITHSCORES).
func EncodeBulkArray(items [][]byte) []byte {
	buf := EncodeArrayHeader(len(items))
	for _, item := range items {
		buf = append(buf, EncodeBulkString(item)...)
	}
	return buf
}

// FormatScore renders a sorted-set score using the shortest round-trip
// decimal representation, with a trailing ".0" for integral values so that
// scores are always visually distinguishable from plain integer replies
// (§4.1.3, §9).
func FormatScore(score float64) string {
	s := strconv.FormatFloat(score, 'g', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' || c == 'n' || c == 'i' {
			return s
		}
	}
	return s + ".0"
}

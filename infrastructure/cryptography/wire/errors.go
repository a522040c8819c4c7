package wire

import "errors"

var (
	errVarintOverflow  = errors.New("wire: varint overflows uint32")
	errVarintTruncated = errors.New("wire: truncated varint")
)

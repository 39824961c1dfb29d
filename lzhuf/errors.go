package lzhuf

import "errors"

var (
	errShortInput = errors.New("lzhuf: input shorter than length prefix")
	errTruncated  = errors.New("lzhuf: bitstream truncated")
	errBadOffset  = errors.New("lzhuf: match offset precedes start of output")
)

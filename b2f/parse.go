package b2f

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// These are the malformed-input conditions Parse reports. Callers that
// need to classify errors by kind should use errors.Is against these
// sentinels.
var (
	ErrMissingHeader   = errors.New("b2f: required header missing")
	ErrDuplicateMid    = errors.New("b2f: duplicate Mid header")
	ErrInvalidType     = errors.New("b2f: invalid Type header")
	ErrInvalidLength   = errors.New("b2f: Body/File length not a non-negative integer")
	ErrPayloadTooLarge = errors.New("b2f: declared payload exceeds configured ceiling")
	ErrTruncatedBody   = errors.New("b2f: message shorter than declared length")
)

// ParseOptions bounds the total declared payload a single Parse call will
// accept.
type ParseOptions struct {
	MaxPayload int // 0 means unbounded
}

// Parse reads one complete B2F message (headers, body, attachments) from r.
func Parse(r io.Reader, opts ParseOptions) (Message, error) {
	br := bufio.NewReader(r)

	var m Message
	var bodyLen int
	haveBody := false
	haveMid, haveDate, haveType, haveFrom, haveSubject := false, false, false, false, false
	var fileLens []int

	for {
		line, err := readHeaderLine(br)
		if err != nil {
			return Message{}, fmt.Errorf("b2f: read header: %w", err)
		}
		if line == "" {
			break
		}
		name, value, ok := splitHeader(line)
		if !ok {
			return Message{}, fmt.Errorf("%w: %q", ErrMissingHeader, line)
		}
		switch strings.ToLower(name) {
		case "mid":
			if haveMid {
				return Message{}, ErrDuplicateMid
			}
			m.Mid = value
			haveMid = true
		case "date":
			m.Date = value
			haveDate = true
		case "type":
			if len(value) != 1 || !Type(value[0]).valid() {
				return Message{}, fmt.Errorf("%w: %q", ErrInvalidType, value)
			}
			m.Type = Type(value[0])
			haveType = true
		case "from":
			m.From = value
			haveFrom = true
		case "to":
			m.To = append(m.To, value)
		case "cc":
			m.Cc = append(m.Cc, value)
		case "subject":
			m.Subject = value
			haveSubject = true
		case "mbo":
			m.Mbo = value
		case "body":
			n, err := parseNonNegativeInt(value)
			if err != nil {
				return Message{}, err
			}
			bodyLen = n
			haveBody = true
		case "file":
			fname, flen, err := splitFileHeader(value)
			if err != nil {
				return Message{}, err
			}
			m.Files = append(m.Files, File{Name: fname})
			fileLens = append(fileLens, flen)
		default:
			// An unrecognized header name is not one of the rejection
			// conditions above; skip rather than reject, the same
			// tolerance the FBB wire format extends to PACSAT headers.
		}
	}

	if !haveMid || !haveDate || !haveType || !haveFrom || !haveSubject || !haveBody {
		return Message{}, fmt.Errorf("%w (mid=%v date=%v type=%v from=%v subject=%v body=%v)",
			ErrMissingHeader, haveMid, haveDate, haveType, haveFrom, haveSubject, haveBody)
	}

	total := bodyLen
	for _, l := range fileLens {
		total += l
	}
	if opts.MaxPayload > 0 && total > opts.MaxPayload {
		return Message{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, total, opts.MaxPayload)
	}

	m.Body = make([]byte, bodyLen)
	if _, err := io.ReadFull(br, m.Body); err != nil {
		return Message{}, fmt.Errorf("%w: body: %v", ErrTruncatedBody, err)
	}
	for i := range m.Files {
		data := make([]byte, fileLens[i])
		if _, err := io.ReadFull(br, data); err != nil {
			return Message{}, fmt.Errorf("%w: file %q: %v", ErrTruncatedBody, m.Files[i].Name, err)
		}
		m.Files[i].Data = data
	}

	// Trailing CRLF.
	trailer := make([]byte, 2)
	if _, err := io.ReadFull(br, trailer); err != nil || !bytes.Equal(trailer, []byte(crlf)) {
		return Message{}, fmt.Errorf("%w: missing trailing CRLF", ErrTruncatedBody)
	}
	return m, nil
}

func readHeaderLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func splitHeader(line string) (name, value string, ok bool) {
	i := strings.Index(line, ":")
	if i < 0 {
		return "", "", false
	}
	return line[:i], strings.TrimSpace(line[i+1:]), true
}

func splitFileHeader(value string) (name string, length int, err error) {
	i := strings.LastIndex(value, " ")
	if i < 0 {
		return "", 0, fmt.Errorf("%w: malformed File header %q", ErrInvalidLength, value)
	}
	n, err := parseNonNegativeInt(value[i+1:])
	if err != nil {
		return "", 0, err
	}
	return value[:i], n, nil
}

func parseNonNegativeInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLength, s)
	}
	return n, nil
}

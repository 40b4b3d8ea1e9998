// Package publish frames payloads in the NATS text protocol and pushes them
// onto a duplex connection.
package publish

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const crlf = "\r\n"

// ErrBadFrame is returned when a frame cannot be parsed or encoded.
var ErrBadFrame = errors.New("bad publish frame")

// Frame is a single PUB message.
type Frame struct {
	Subject string
	Payload []byte
}

// Validate checks that the subject can be written on the wire.
func (f Frame) Validate() error {
	if f.Subject == "" {
		return fmt.Errorf("%w: empty subject", ErrBadFrame)
	}
	if strings.ContainsAny(f.Subject, " \t\r\n") {
		return fmt.Errorf("%w: subject %q contains whitespace", ErrBadFrame, f.Subject)
	}
	return nil
}

// Encode renders "PUB <subject> <len>\r\n<payload>\r\n". The length is the
// number of payload bytes, which for text is its UTF-8 byte count.
func (f Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(len(f.Subject) + len(f.Payload) + 16)
	buf.WriteString("PUB ")
	buf.WriteString(f.Subject)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(len(f.Payload)))
	buf.WriteString(crlf)
	buf.Write(f.Payload)
	buf.WriteString(crlf)
	return buf.Bytes()
}

// ParseFrames splits a stream of concatenated PUB frames.
func ParseFrames(data []byte) ([]Frame, error) {
	var frames []Frame
	for len(data) > 0 {
		end := bytes.Index(data, []byte(crlf))
		if end < 0 {
			return frames, fmt.Errorf("%w: missing header terminator", ErrBadFrame)
		}
		fields := strings.Fields(string(data[:end]))
		if len(fields) != 3 || fields[0] != "PUB" {
			return frames, fmt.Errorf("%w: header %q", ErrBadFrame, data[:end])
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil || n < 0 {
			return frames, fmt.Errorf("%w: length %q", ErrBadFrame, fields[2])
		}

		body := data[end+len(crlf):]
		if len(body) < n+len(crlf) || string(body[n:n+len(crlf)]) != crlf {
			return frames, fmt.Errorf("%w: truncated payload", ErrBadFrame)
		}
		frames = append(frames, Frame{Subject: fields[1], Payload: append([]byte(nil), body[:n]...)})
		data = body[n+len(crlf):]
	}
	return frames, nil
}

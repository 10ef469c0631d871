package telnet

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"sync"
	"time"
)

// Telnet IAC (Interpret As Command) constants per RFC 854.
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Sub-negotiation Begin
	SE   byte = 240 // Sub-negotiation End
	NOP  byte = 241
	GA   byte = 249 // Go Ahead

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// MaxLineLength bounds a single input line in bytes.
const MaxLineLength = 1024

// ErrLineTooLong is returned by ReadLine when a line exceeds MaxLineLength.
// The oversized line is discarded and the connection remains usable.
var ErrLineTooLong = errors.New("input line too long")

type iacState int

const (
	stText iacState = iota
	stCommand
	stOption
	stSub
	stSubIAC
)

// iacFilter is a byte-at-a-time Telnet command stripper.
type iacFilter struct {
	state iacState
}

// feed consumes b and reports whether it is a text byte.
func (f *iacFilter) feed(b byte) bool {
	switch f.state {
	case stCommand:
		switch b {
		case WILL, WONT, DO, DONT:
			f.state = stOption
		case SB:
			f.state = stSub
		case IAC:
			f.state = stText
			return true
		default:
			f.state = stText
		}
		return false
	case stOption:
		f.state = stText
		return false
	case stSub:
		if b == IAC {
			f.state = stSubIAC
		}
		return false
	case stSubIAC:
		if b == SE {
			f.state = stText
		} else {
			f.state = stSub
		}
		return false
	default:
		if b == IAC {
			f.state = stCommand
			return false
		}
		return true
	}
}

// FilterIAC removes Telnet command sequences from input. An escaped IAC IAC
// yields a single 0xFF; an incomplete trailing command is dropped.
func FilterIAC(input []byte) []byte {
	var f iacFilter
	out := make([]byte, 0, len(input))
	for _, b := range input {
		if f.feed(b) {
			out = append(out, b)
		}
	}
	return out
}

// Conn wraps a TCP connection with Telnet protocol handling.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	filter iacFilter
	id     string
	mu     sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps a raw connection with Telnet protocol handling.
//
// Precondition: raw must be a valid, open network connection.
// Postcondition: Returns a Conn ready for reading and writing.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ID returns the session identifier assigned by the Acceptor, or "" for bare Conns.
func (c *Conn) ID() string { return c.id }

// Negotiate asks the client to suppress go-ahead.
func (c *Conn) Negotiate() error {
	return c.Write([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine reads one line of text with Telnet commands and control characters
// removed. CR, LF and CRLF all terminate a line; the terminator is not returned.
//
// Postcondition: Returns the line, ErrLineTooLong for an oversized line, or a
// read error (including io.EOF).
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var line bytes.Buffer
	overflow := false
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return line.String(), err
		}
		if !c.filter.feed(b) {
			continue
		}
		if b == '\r' || b == '\n' {
			if b == '\r' {
				if next, err := c.reader.Peek(1); err == nil && next[0] == '\n' {
					_, _ = c.reader.ReadByte()
				}
			}
			break
		}
		if (b < 32 && b != '\t') || b == 127 || b == IAC {
			continue
		}
		if line.Len() >= MaxLineLength {
			overflow = true
			continue
		}
		line.WriteByte(b)
	}
	if overflow {
		return "", ErrLineTooLong
	}
	return line.String(), nil
}

func (c *Conn) write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(p)
	return err
}

// WriteLine sends text followed by \r\n. Embedded newlines become \r\n.
func (c *Conn) WriteLine(text string) error {
	return c.write(append(crlf(text), '\r', '\n'))
}

// WritePrompt sends prompt without a trailing newline.
func (c *Conn) WritePrompt(prompt string) error {
	return c.write([]byte(prompt))
}

// Write sends raw bytes to the client.
func (c *Conn) Write(data []byte) error {
	return c.write(data)
}

func crlf(text string) []byte {
	out := make([]byte, 0, len(text)+8)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' && (i == 0 || text[i-1] != '\r') {
			out = append(out, '\r')
		}
		out = append(out, text[i])
	}
	return out
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

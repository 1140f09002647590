// Package wire frames bridge protocol messages over a net.Conn: one
// newline-terminated JSON document per message, optionally sealed with NaCl
// secretbox when the connection crosses a machine boundary.
//
// Unencrypted: <json>\n
// Encrypted:   <base64(nonce+ciphertext)>\n
//
// Encrypting to a base64 line keeps the framing identical in both cases.
package wire

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"time"

	"go.klb.dev/tabclip/internal/crypto"
	"go.klb.dev/tabclip/internal/message"
)

// MaxLine is the largest single message accepted (4 MiB — tab lists are
// small, this is headroom for pathological selections).
const MaxLine = 4 * 1024 * 1024

const writeDeadline = 5 * time.Second

// Conn wraps a net.Conn with line framing and optional encryption.
type Conn struct {
	conn net.Conn
	br   *bufio.Reader
	key  *[32]byte // nil = plaintext
}

// New wraps conn. A non-nil key seals every outgoing message and opens every
// incoming one.
func New(conn net.Conn, key *[32]byte) *Conn {
	return &Conn{
		conn: conn,
		br:   bufio.NewReaderSize(conn, 64*1024),
		key:  key,
	}
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

// Send serialises msg and writes it as one line. A write deadline bounds a
// stalled peer; it is cleared afterwards so long-lived reads are unaffected.
func (c *Conn) Send(msg *message.Message) error {
	raw, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	var line []byte
	if c.key != nil {
		sealed, err := crypto.Seal(raw, c.key)
		if err != nil {
			return fmt.Errorf("seal: %w", err)
		}
		line = append([]byte(base64.StdEncoding.EncodeToString(sealed)), '\n')
	} else {
		line = append(raw, '\n')
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	_, err = c.conn.Write(line)
	_ = c.conn.SetWriteDeadline(time.Time{})
	return err
}

// Receive reads one line and deserialises it into a Message.
func (c *Conn) Receive() (*message.Message, error) {
	line, err := c.br.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	if len(line) > MaxLine {
		return nil, fmt.Errorf("message too large (%d bytes)", len(line))
	}
	line = line[:len(line)-1] // strip newline

	raw := line
	if c.key != nil {
		sealed, err := base64.StdEncoding.DecodeString(string(line))
		if err != nil {
			return nil, fmt.Errorf("base64 decode: %w", err)
		}
		raw, err = crypto.Open(sealed, c.key)
		if err != nil {
			return nil, fmt.Errorf("open: %w", err)
		}
	}

	return message.Decode(raw)
}

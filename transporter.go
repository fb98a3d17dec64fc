package waverelay

import (
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// TCPTransporter handles Modbus TCP framing over a net.Conn. It performs one
// request/response exchange at a time; serialization across calls is owned by
// the Client that drives it.
type TCPTransporter struct {
	conn          net.Conn
	timeout       time.Duration
	packager      *TCPPackager
	logger        io.Writer
	transactionID uint32 // Atomic counter for transaction IDs
	closed        bool
}

// NewTCPTransporter creates a new TCPTransporter with the given connection and timeout.
func NewTCPTransporter(conn net.Conn, timeout time.Duration, logger io.Writer) *TCPTransporter {
	return &TCPTransporter{
		conn:     conn,
		timeout:  timeout,
		packager: NewTCPPackager(),
		logger:   logger,
	}
}

func (t *TCPTransporter) log(format string, v ...interface{}) {
	if t.logger != nil {
		fmt.Fprintf(t.logger, format+"\n", v...)
	}
}

// NextTransactionID generates the next transaction ID, wrapping at 65535.
func (t *TCPTransporter) NextTransactionID() uint16 {
	id := atomic.AddUint32(&t.transactionID, 1)
	return uint16(id & 0xFFFF)
}

func (t *TCPTransporter) setDeadline() error {
	if t.timeout > 0 {
		return t.conn.SetDeadline(time.Now().Add(t.timeout))
	}
	return nil
}

func (t *TCPTransporter) remoteAddr() string {
	if t.conn == nil {
		return ""
	}
	return t.conn.RemoteAddr().String()
}

// connError wraps a transport failure, classifying deadline errors.
func (t *TCPTransporter) connError(op string, err error) *ConnError {
	timeout := false
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		timeout = true
	}
	return &ConnError{Op: op, Addr: t.remoteAddr(), Timeout: timeout, Err: err}
}

// Send packs and writes a request PDU with the given transaction ID.
func (t *TCPTransporter) Send(transactionID uint16, unitID uint8, pdu []byte) error {
	if t.closed {
		return &ConnError{Op: "write", Addr: t.remoteAddr(), Err: ErrClosed}
	}

	frame, err := t.packager.Pack(transactionID, unitID, pdu)
	if err != nil {
		return err
	}

	if err := t.setDeadline(); err != nil {
		return t.connError("write", err)
	}

	t.log("[DEBUG] send: TxID=0x%04X, UnitID=%d, PDU=% X", transactionID, unitID, pdu)

	written := 0
	for written < len(frame) {
		n, err := t.conn.Write(frame[written:])
		if err != nil {
			return t.connError("write", err)
		}
		written += n
	}
	return nil
}

// Receive reads one complete Modbus TCP response: the 7-byte MBAP header
// first, then exactly the PDU length the header announces.
func (t *TCPTransporter) Receive() (transactionID uint16, unitID uint8, pdu []byte, err error) {
	if t.closed {
		err = &ConnError{Op: "read", Addr: t.remoteAddr(), Err: ErrClosed}
		return
	}

	if err = t.setDeadline(); err != nil {
		err = t.connError("read", err)
		return
	}

	header := make([]byte, TCPHeaderLength)
	if _, err = io.ReadFull(t.conn, header); err != nil {
		err = t.connError("read", err)
		return
	}

	pduLength, err := t.packager.ValidateHeader(header)
	if err != nil {
		return
	}
	if pduLength <= 0 {
		err = protocolErrorf("invalid PDU length: %d", pduLength)
		return
	}

	frame := make([]byte, TCPHeaderLength+pduLength)
	copy(frame, header)
	if _, err = io.ReadFull(t.conn, frame[TCPHeaderLength:]); err != nil {
		err = t.connError("read", err)
		return
	}

	transactionID, unitID, pdu, err = t.packager.Unpack(frame)
	if err != nil {
		return
	}

	t.log("[DEBUG] recv: TxID=0x%04X, UnitID=%d, PDU=% X", transactionID, unitID, pdu)
	return
}

// Close closes the underlying connection and marks the transporter as
// closed. It is idempotent.
func (t *TCPTransporter) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// IsClosed reports whether the transporter has been closed.
func (t *TCPTransporter) IsClosed() bool {
	return t.closed
}

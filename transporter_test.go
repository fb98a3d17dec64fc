package waverelay

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// serveOneExchange answers one request on the server side of a pipe with the
// given response PDU, echoing the request's transaction and unit ids.
func serveOneExchange(t *testing.T, conn net.Conn, respPDU []byte) {
	t.Helper()
	go func() {
		p := NewTCPPackager()
		header := make([]byte, TCPHeaderLength)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		pduLen, err := p.ValidateHeader(header)
		if err != nil {
			return
		}
		reqPDU := make([]byte, pduLen)
		if _, err := io.ReadFull(conn, reqPDU); err != nil {
			return
		}
		txID := uint16(header[0])<<8 | uint16(header[1])
		frame, err := p.Pack(txID, header[6], respPDU)
		if err != nil {
			return
		}
		conn.Write(frame)
	}()
}

func TestTCPTransporter_SendReceive(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	tr := NewTCPTransporter(client, time.Second, nil)
	defer tr.Close()

	respPDU := []byte{FuncCodeReadCoils, 0x01, 0x05}
	serveOneExchange(t, server, respPDU)

	txID := tr.NextTransactionID()
	reqPDU := []byte{FuncCodeReadCoils, 0x00, 0x00, 0x00, 0x08}
	if err := tr.Send(txID, 1, reqPDU); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	gotTxID, gotUnitID, gotPDU, err := tr.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if gotTxID != txID {
		t.Errorf("transaction ID mismatch: got %d, want %d", gotTxID, txID)
	}
	if gotUnitID != 1 {
		t.Errorf("unit ID mismatch: got %d, want 1", gotUnitID)
	}
	if len(gotPDU) != len(respPDU) {
		t.Errorf("PDU length mismatch: got %d, want %d", len(gotPDU), len(respPDU))
	}
}

func TestTCPTransporter_ReceiveTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	tr := NewTCPTransporter(client, 50*time.Millisecond, nil)
	defer tr.Close()

	_, _, _, err := tr.Receive()
	if err == nil {
		t.Fatal("Receive should time out with no data")
	}
	if !errors.Is(err, ErrConnection) {
		t.Errorf("expected connection error, got %v", err)
	}
	var connErr *ConnError
	if !errors.As(err, &connErr) || !connErr.Timeout {
		t.Errorf("expected timeout variant, got %v", err)
	}
}

func TestTCPTransporter_TransactionIDWraps(t *testing.T) {
	client, _ := net.Pipe()
	tr := NewTCPTransporter(client, time.Second, nil)
	defer tr.Close()

	seen := tr.NextTransactionID()
	next := tr.NextTransactionID()
	if next != seen+1 {
		t.Errorf("transaction IDs not monotonic: %d then %d", seen, next)
	}
}

func TestTCPTransporter_CloseIdempotent(t *testing.T) {
	client, _ := net.Pipe()
	tr := NewTCPTransporter(client, time.Second, nil)

	if err := tr.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
	if !tr.IsClosed() {
		t.Error("transporter should report closed")
	}

	if err := tr.Send(1, 1, []byte{FuncCodeReadCoils, 0, 0, 0, 1}); !errors.Is(err, ErrConnection) {
		t.Errorf("Send on closed transporter should fail with connection error, got %v", err)
	}
	if _, _, _, err := tr.Receive(); !errors.Is(err, ErrConnection) {
		t.Errorf("Receive on closed transporter should fail with connection error, got %v", err)
	}
}

package waverelay

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
)

// Client is a Modbus TCP client for one Waveshare relay board. It owns a
// single TCP session to the device and exposes typed read/write operations
// for the relay coils and the board's holding registers.
//
// All operations are strictly sequential: a mutex guarantees at most one
// in-flight request per connection, matching the request/response pairing of
// Modbus TCP. A Client must not be shared by concurrent pollers without
// external coordination of who drives it (see StatusPoller).
type Client struct {
	cfg    DeviceConfig
	logger io.Writer

	mu          sync.Mutex
	transporter *TCPTransporter
	dialed      bool // a session has been established at least once
	closed      bool
}

// NewClient creates a Client for the given device. The configuration is
// validated once, with defaults applied first; no connection is made until
// Connect or the first operation.
func NewClient(cfg DeviceConfig) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("waverelay: invalid device config: %w", err)
	}
	return &Client{cfg: cfg}, nil
}

// SetLogger sets the debug logger for the client and its transport.
// A nil writer disables logging.
func (c *Client) SetLogger(logger io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
	if c.transporter != nil {
		c.transporter.logger = logger
	}
}

// Config returns the device configuration the client was built with.
func (c *Client) Config() DeviceConfig { return c.cfg }

// Connect establishes the TCP session to the device. It fails with a
// ConnError if the device is unreachable, refuses the connection, or the
// dial exceeds the configured timeout.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	if c.closed {
		return &ConnError{Op: "dial", Addr: c.cfg.Addr(), Err: ErrClosed}
	}
	if c.transporter != nil && !c.transporter.IsClosed() {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.cfg.Addr(), c.cfg.Timeout)
	if err != nil {
		timeout := false
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			timeout = true
		}
		return &ConnError{Op: "dial", Addr: c.cfg.Addr(), Timeout: timeout, Err: err}
	}
	c.transporter = NewTCPTransporter(conn, c.cfg.Timeout, c.logger)
	c.dialed = true
	return nil
}

// Reconnect tears down the current session, if any, and dials a new one.
func (c *Client) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transporter != nil {
		c.transporter.Close()
		c.transporter = nil
	}
	return c.connectLocked()
}

// Connected reports whether the client currently holds a usable session.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transporter != nil && !c.transporter.IsClosed()
}

// Close releases the TCP session. It is idempotent; a closed client rejects
// all further operations.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.transporter != nil {
		err := c.transporter.Close()
		c.transporter = nil
		return err
	}
	return nil
}

// invalidateLocked closes the session after a transport or protocol failure.
// A Modbus TCP stream can be unrecoverably desynchronized after a malformed
// exchange, so the connection is not reused; the caller must Reconnect.
func (c *Client) invalidateLocked() {
	if c.transporter != nil {
		c.transporter.Close()
		c.transporter = nil
	}
}

// ensureConnectedLocked lazily dials on the very first operation. Once a
// session has failed, reconnection is an explicit caller action.
func (c *Client) ensureConnectedLocked() error {
	if c.closed {
		return &ConnError{Op: "dial", Addr: c.cfg.Addr(), Err: ErrClosed}
	}
	if c.transporter != nil && !c.transporter.IsClosed() {
		return nil
	}
	if c.dialed {
		return &ConnError{Op: "write", Addr: c.cfg.Addr(),
			Err: fmt.Errorf("session invalidated, reconnect required")}
	}
	return c.connectLocked()
}

// sendAndReceive performs one request/response exchange, correlating the
// response by transaction id and decoding exception PDUs.
func (c *Client) sendAndReceive(reqPDU []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnectedLocked(); err != nil {
		return nil, err
	}

	txID := c.transporter.NextTransactionID()
	if err := c.transporter.Send(txID, c.cfg.UnitID, reqPDU); err != nil {
		c.invalidateLocked()
		return nil, err
	}

	respTxID, respUnitID, respPDU, err := c.transporter.Receive()
	if err != nil {
		c.invalidateLocked()
		return nil, err
	}

	if respTxID != txID {
		c.invalidateLocked()
		return nil, protocolErrorf("transaction ID mismatch: sent 0x%04X, received 0x%04X", txID, respTxID)
	}
	if respUnitID != c.cfg.UnitID {
		c.invalidateLocked()
		return nil, protocolErrorf("unit ID mismatch: sent %d, received %d", c.cfg.UnitID, respUnitID)
	}
	if len(respPDU) == 0 {
		c.invalidateLocked()
		return nil, protocolErrorf("empty response PDU")
	}

	if respPDU[0]&0x80 != 0 {
		exceptionCode := uint8(0)
		if len(respPDU) > 1 {
			exceptionCode = respPDU[1]
		}
		return nil, &SlaveError{FunctionCode: respPDU[0] & 0x7F, ExceptionCode: exceptionCode}
	}
	return respPDU, nil
}

// readModbusData sends a standard read request (address + quantity) and
// returns the data payload after the function code and byte count, validating
// the announced byte count against the actual length.
func (c *Client) readModbusData(funcCode uint8, address, quantity uint16) ([]byte, error) {
	reqPDU := make([]byte, 5)
	reqPDU[0] = funcCode
	binary.BigEndian.PutUint16(reqPDU[1:3], address)
	binary.BigEndian.PutUint16(reqPDU[3:5], quantity)

	respPDU, err := c.sendAndReceive(reqPDU)
	if err != nil {
		return nil, err
	}

	if respPDU[0] != funcCode {
		c.mu.Lock()
		c.invalidateLocked()
		c.mu.Unlock()
		return nil, protocolErrorf("unexpected function code in response: got %02X, expected %02X", respPDU[0], funcCode)
	}
	if len(respPDU) < 2 {
		return nil, protocolErrorf("response too short for func %02X: %d bytes", funcCode, len(respPDU))
	}
	byteCount := int(respPDU[1])
	if len(respPDU) != 2+byteCount {
		return nil, protocolErrorf("response byte count mismatch for func %02X: announced %d, got %d", funcCode, byteCount, len(respPDU)-2)
	}
	return respPDU[2:], nil
}

// writeModbusData sends a write request and returns the full response PDU
// after validating its length, so callers can check the echoed fields.
func (c *Client) writeModbusData(funcCode uint8, address, value uint16, expectedRespPDULen int) ([]byte, error) {
	reqPDU := make([]byte, 5)
	reqPDU[0] = funcCode
	binary.BigEndian.PutUint16(reqPDU[1:3], address)
	binary.BigEndian.PutUint16(reqPDU[3:5], value)

	respPDU, err := c.sendAndReceive(reqPDU)
	if err != nil {
		return nil, err
	}

	if respPDU[0] != funcCode {
		c.mu.Lock()
		c.invalidateLocked()
		c.mu.Unlock()
		return nil, protocolErrorf("unexpected function code in response: got %02X, expected %02X", respPDU[0], funcCode)
	}
	if len(respPDU) != expectedRespPDULen {
		return nil, protocolErrorf("invalid response length for func %02X: expected %d bytes, got %d", funcCode, expectedRespPDULen, len(respPDU))
	}
	return respPDU, nil
}

// checkChannel rejects out-of-range channel indexes before any wire I/O.
func (c *Client) checkChannel(index int) error {
	if index < 0 || index >= c.cfg.Channels {
		return &RangeError{Index: index, Channels: c.cfg.Channels}
	}
	return nil
}

// ReadCoil reads the state of a single relay channel.
func (c *Client) ReadCoil(index int) (bool, error) {
	if err := c.checkChannel(index); err != nil {
		return false, err
	}
	data, err := c.readModbusData(FuncCodeReadCoils, uint16(index), 1)
	if err != nil {
		return false, err
	}
	if len(data) < 1 {
		return false, protocolErrorf("read coil: empty data payload")
	}
	return data[0]&0x01 != 0, nil
}

// ReadCoils reads the state of all configured relay channels in one request.
func (c *Client) ReadCoils() ([]bool, error) {
	quantity := uint16(c.cfg.Channels)
	data, err := c.readModbusData(FuncCodeReadCoils, 0, quantity)
	if err != nil {
		return nil, err
	}
	if len(data) < (int(quantity)+7)/8 {
		return nil, protocolErrorf("read coils: %d data bytes for %d channels", len(data), quantity)
	}
	states := make([]bool, quantity)
	for i := 0; i < int(quantity); i++ {
		if data[i/8]&(1<<(i%8)) != 0 {
			states[i] = true
		}
	}
	return states, nil
}

// WriteCoil switches a single relay channel on or off.
func (c *Client) WriteCoil(index int, on bool) error {
	if err := c.checkChannel(index); err != nil {
		return err
	}
	value := CoilValueOff
	if on {
		value = CoilValueOn
	}
	respPDU, err := c.writeModbusData(FuncCodeWriteSingleCoil, uint16(index), value, RespPDULenWriteSingleCoil)
	if err != nil {
		return err
	}

	respAddress := binary.BigEndian.Uint16(respPDU[1:3])
	respValue := binary.BigEndian.Uint16(respPDU[3:5])
	if respAddress != uint16(index) {
		return protocolErrorf("write coil response address mismatch: expected %d, got %d", index, respAddress)
	}
	if respValue != value {
		return protocolErrorf("write coil response value mismatch: expected 0x%04X, got 0x%04X", value, respValue)
	}
	return nil
}

// ReadHoldingRegister reads one 16-bit holding register.
func (c *Client) ReadHoldingRegister(address uint16) (uint16, error) {
	data, err := c.readModbusData(FuncCodeReadHoldingRegisters, address, 1)
	if err != nil {
		return 0, err
	}
	if len(data) != 2 {
		return 0, protocolErrorf("read holding register: expected 2 data bytes, got %d", len(data))
	}
	return binary.BigEndian.Uint16(data), nil
}

// WriteHoldingRegister writes one 16-bit holding register. Values outside
// [0, 65535] are rejected before any wire I/O.
func (c *Client) WriteHoldingRegister(address uint16, value int) error {
	if value < 0 || value > 0xFFFF {
		return &ValueError{Value: value}
	}
	respPDU, err := c.writeModbusData(FuncCodeWriteSingleRegister, address, uint16(value), RespPDULenWriteSingleRegister)
	if err != nil {
		return err
	}

	respAddress := binary.BigEndian.Uint16(respPDU[1:3])
	respValue := binary.BigEndian.Uint16(respPDU[3:5])
	if respAddress != address {
		return protocolErrorf("write register response address mismatch: expected %d, got %d", address, respAddress)
	}
	if respValue != uint16(value) {
		return protocolErrorf("write register response value mismatch: expected %d, got %d", value, respValue)
	}
	return nil
}

// FlashInterval reads the board's flash interval register (100ms units).
func (c *Client) FlashInterval() (uint16, error) {
	return c.ReadHoldingRegister(RegFlashInterval)
}

// SetFlashInterval writes the board's flash interval register (100ms units).
func (c *Client) SetFlashInterval(interval int) error {
	return c.WriteHoldingRegister(RegFlashInterval, interval)
}

// ReadDeviceAddress reads the board's configured Modbus unit address.
func (c *Client) ReadDeviceAddress() (uint8, error) {
	value, err := c.ReadHoldingRegister(RegDeviceAddress)
	if err != nil {
		return 0, err
	}
	return uint8(value & 0xFF), nil
}

// ReadSoftwareVersion reads the board's firmware version register and formats
// it the way Waveshare documents it, e.g. 0x00C8 -> "V2.00".
func (c *Client) ReadSoftwareVersion() (string, error) {
	value, err := c.ReadHoldingRegister(RegSoftwareVersion)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("V%.2f", float64(value)/100), nil
}

// FlashOn starts flashing a relay channel with the given interval in 100ms
// units. The board encodes flash commands as a Write Single Coil variant
// whose address carries the flash opcode and whose value carries the
// interval.
func (c *Client) FlashOn(index int, interval int) error {
	if err := c.checkChannel(index); err != nil {
		return err
	}
	if interval < 0 || interval > 0xFFFF {
		return &ValueError{Value: interval}
	}
	return c.flashCommand(FlashOnPrefix|uint16(index), uint16(interval))
}

// FlashOff stops flashing a relay channel.
func (c *Client) FlashOff(index int) error {
	if err := c.checkChannel(index); err != nil {
		return err
	}
	return c.flashCommand(FlashOffPrefix|uint16(index), 0)
}

// flashCommand sends the Waveshare flash variant of FC 0x05. The device
// echoes the request on success; the standard 0xFF00/0x0000 value check does
// not apply because the value field carries the interval.
func (c *Client) flashCommand(address, value uint16) error {
	respPDU, err := c.writeModbusData(FuncCodeWriteSingleCoil, address, value, RespPDULenWriteSingleCoil)
	if err != nil {
		return err
	}
	respAddress := binary.BigEndian.Uint16(respPDU[1:3])
	if respAddress != address {
		return protocolErrorf("flash command response address mismatch: expected 0x%04X, got 0x%04X", address, respAddress)
	}
	return nil
}

// Copyright (C) 2025  wavekit
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package waverelay

import (
	"encoding/binary"
)

// Modbus TCP protocol constants.
const (
	TCPHeaderLength       = 7   // MBAP header length in bytes
	MaxPDULength          = 253 // Maximum PDU length according to Modbus spec
	MaxTCPFrameLength     = TCPHeaderLength + MaxPDULength
	ProtocolIdentifierTCP = 0x0000
)

// TCPPackager handles Modbus TCP frame packing and unpacking.
// The frame format is: MBAP (7 bytes) + PDU (variable length).
// MBAP: Transaction Identifier (2) + Protocol Identifier (2) + Length (2) + Unit Identifier (1).
type TCPPackager struct{}

// NewTCPPackager creates a new TCPPackager.
func NewTCPPackager() *TCPPackager {
	return &TCPPackager{}
}

// Pack packs a Modbus PDU into a complete TCP frame.
func (p *TCPPackager) Pack(transactionID uint16, unitID uint8, pdu []byte) ([]byte, error) {
	if len(pdu) == 0 {
		return nil, protocolErrorf("PDU cannot be empty")
	}
	if len(pdu) > MaxPDULength {
		return nil, protocolErrorf("PDU length %d exceeds maximum %d bytes", len(pdu), MaxPDULength)
	}

	// Length field includes the Unit Identifier (1 byte) + PDU length
	length := uint16(len(pdu) + 1)

	frame := make([]byte, TCPHeaderLength+len(pdu))
	binary.BigEndian.PutUint16(frame[0:2], transactionID)
	binary.BigEndian.PutUint16(frame[2:4], ProtocolIdentifierTCP)
	binary.BigEndian.PutUint16(frame[4:6], length)
	frame[6] = unitID
	copy(frame[7:], pdu)

	return frame, nil
}

// Unpack unpacks a Modbus TCP frame into a Transaction Identifier, Unit Identifier, and PDU.
func (p *TCPPackager) Unpack(frame []byte) (transactionID uint16, unitID uint8, pdu []byte, err error) {
	if len(frame) < TCPHeaderLength {
		err = protocolErrorf("invalid TCP frame length: %d bytes, minimum required: %d bytes", len(frame), TCPHeaderLength)
		return
	}
	if len(frame) > MaxTCPFrameLength {
		err = protocolErrorf("TCP frame length %d exceeds maximum %d bytes", len(frame), MaxTCPFrameLength)
		return
	}

	transactionID = binary.BigEndian.Uint16(frame[0:2])
	protocolID := binary.BigEndian.Uint16(frame[2:4])
	length := binary.BigEndian.Uint16(frame[4:6])
	unitID = frame[6]

	if protocolID != ProtocolIdentifierTCP {
		err = protocolErrorf("invalid protocol identifier: 0x%04X, expected 0x%04X", protocolID, ProtocolIdentifierTCP)
		return
	}
	if length == 0 {
		err = protocolErrorf("invalid length field: cannot be zero")
		return
	}

	pdu = frame[7:]

	// Length = Unit ID (1 byte) + PDU length
	expectedLength := uint16(len(pdu) + 1)
	if length != expectedLength {
		err = protocolErrorf("length field mismatch: header indicates %d, actual frame has %d", length, expectedLength)
		return
	}

	return
}

// ValidateHeader performs basic validation on an MBAP header before the PDU
// has been read, returning the expected PDU length.
func (p *TCPPackager) ValidateHeader(header []byte) (pduLength int, err error) {
	if len(header) < TCPHeaderLength {
		return 0, protocolErrorf("header too short: %d bytes, minimum: %d bytes", len(header), TCPHeaderLength)
	}

	protocolID := binary.BigEndian.Uint16(header[2:4])
	if protocolID != ProtocolIdentifierTCP {
		return 0, protocolErrorf("invalid protocol identifier: 0x%04X", protocolID)
	}

	length := binary.BigEndian.Uint16(header[4:6])
	if length == 0 {
		return 0, protocolErrorf("invalid length field: cannot be zero")
	}
	if length > MaxPDULength+1 { // +1 for unit ID
		return 0, protocolErrorf("length field too large: %d, maximum: %d", length, MaxPDULength+1)
	}

	// Length includes Unit ID (1 byte), so PDU length is (length - 1).
	return int(length) - 1, nil
}

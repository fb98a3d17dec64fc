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

// Modbus function codes used by the Waveshare relay boards.
const (
	FuncCodeReadCoils            uint8 = 0x01
	FuncCodeReadHoldingRegisters uint8 = 0x03
	FuncCodeWriteSingleCoil      uint8 = 0x05
	FuncCodeWriteSingleRegister  uint8 = 0x06
)

// Write Single Coil value field encodings.
const (
	CoilValueOn  uint16 = 0xFF00
	CoilValueOff uint16 = 0x0000
)

// Waveshare command prefixes carried in the high byte of the Write Single
// Coil output address. The boards overload FC 0x05: address 0x02NN starts
// flashing channel NN with the value field holding the interval in 100ms
// units, address 0x04NN stops flashing.
const (
	FlashOnPrefix  uint16 = 0x0200
	FlashOffPrefix uint16 = 0x0400
)

// Board-specific holding register addresses.
const (
	// RegFlashInterval holds the relay flash interval in 100ms units.
	RegFlashInterval uint16 = 0x2000
	// RegDeviceAddress holds the configured Modbus unit address.
	RegDeviceAddress uint16 = 0x4000
	// RegSoftwareVersion holds the firmware version scaled by 100.
	RegSoftwareVersion uint16 = 0x8000
)

// Standard response PDU lengths (including function code).
const (
	RespPDULenWriteSingleCoil     = 1 + 2 + 2 // FuncCode (1) + Address (2) + Value (2)
	RespPDULenWriteSingleRegister = 1 + 2 + 2 // FuncCode (1) + Address (2) + Value (2)
)

// exceptionMessage returns a human-readable message for a Modbus exception code.
func exceptionMessage(exceptionCode uint8) string {
	switch exceptionCode {
	case 0x01:
		return "Illegal function"
	case 0x02:
		return "Illegal data address"
	case 0x03:
		return "Illegal data value"
	case 0x04:
		return "Slave device failure"
	case 0x05:
		return "Acknowledge"
	case 0x06:
		return "Slave device busy"
	case 0x08:
		return "Memory parity error"
	case 0x0A:
		return "Gateway path unavailable"
	case 0x0B:
		return "Gateway target device failed to respond"
	default:
		return "Unknown exception code"
	}
}

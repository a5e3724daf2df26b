package mtp40f

import (
	"encoding/binary"
	"fmt"
)

// Frame magic prefix and fixed header values.
const (
	MagicHi byte = 0x42
	MagicLo byte = 0x4D

	// DefaultAddress is the device address/class byte used by every MTP40-F command.
	DefaultAddress byte = 0xA0
)

// Command codes.
const (
	CmdSetAirPressureReference byte = 0x01
	CmdGetAirPressureReference byte = 0x02
	CmdGetGasConcentration     byte = 0x03
	CmdCalibrateSinglePoint    byte = 0x04
	CmdSelfCalibration         byte = 0x06
)

// Expected response lengths per command. The protocol has no length prefix usable
// before reading, so these are fixed.
const (
	SetAirPressureReferenceResponseLen = 0 // no documented acknowledgment
	GetAirPressureReferenceResponseLen = 11
	GetGasConcentrationResponseLen     = 14
	CalibrateSinglePointResponseLen    = 10
	SelfCalibrationResponseLen         = 9
)

// Accepted air pressure reference range in hPa (inclusive).
const (
	MinAirPressure uint16 = 700
	MaxAirPressure uint16 = 1100
)

// CalibrationTargetPPM is the reference concentration of the single point calibration.
const CalibrationTargetPPM = 400

// Self calibration flag values.
const (
	selfCalibrationOn  byte = 0x00
	selfCalibrationOff byte = 0xFF
)

const (
	frameHeaderSize = 7
	checksumSize    = 2

	// offset of the response payload, right after the header
	payloadOffset = frameHeaderSize
)

// Checksum returns the arithmetic sum of all bytes in data truncated to 16 bits.
func Checksum(data []byte) uint16 {
	var sum uint16
	for _, v := range data {
		sum += uint16(v)
	}

	return sum
}

// Frame is a single MTP40-F command frame.
//
// On the wire a frame is:
//
//	[0x42][0x4D][Address][0x00][Command][Len_Hi][Len_Lo][Payload...][Checksum_Hi][Checksum_Lo]
type Frame struct {
	Address byte
	Command byte
	Payload []byte
}

// Len returns the wire length of the frame.
func (f *Frame) Len() int {
	return frameHeaderSize + len(f.Payload) + checksumSize
}

// Pack serializes the frame to its wire format and stamps the checksum.
func (f *Frame) Pack() []byte {
	buf := make([]byte, f.Len())

	buf[0] = MagicHi
	buf[1] = MagicLo
	buf[2] = f.Address
	buf[3] = 0x00
	buf[4] = f.Command
	binary.BigEndian.PutUint16(buf[5:7], uint16(len(f.Payload))) //nolint:gosec // payloads are at most a few bytes
	copy(buf[frameHeaderSize:], f.Payload)

	n := len(buf) - checksumSize
	binary.BigEndian.PutUint16(buf[n:], Checksum(buf[:n]))

	return buf
}

// Checksum returns the checksum Pack would stamp on the frame.
func (f *Frame) Checksum() uint16 {
	packed := f.Pack()
	return binary.BigEndian.Uint16(packed[len(packed)-checksumSize:])
}

// NewGetCO2Frame returns the gas concentration request. It always packs to
// 42 4D A0 00 03 00 00 01 32.
func NewGetCO2Frame() *Frame {
	return &Frame{Address: DefaultAddress, Command: CmdGetGasConcentration}
}

// NewGetAirPressureReferenceFrame returns the air pressure reference request.
func NewGetAirPressureReferenceFrame() *Frame {
	return &Frame{Address: DefaultAddress, Command: CmdGetAirPressureReference}
}

// NewSetAirPressureReferenceFrame returns the request that sets the air pressure
// reference to hpa. The value is not range checked here.
func NewSetAirPressureReferenceFrame(hpa uint16) *Frame {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, hpa)

	return &Frame{Address: DefaultAddress, Command: CmdSetAirPressureReference, Payload: payload}
}

// NewCalibrate400ppmFrame returns the single point calibration request with the 400 ppm
// target.
func NewCalibrate400ppmFrame() *Frame {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, CalibrationTargetPPM)

	return &Frame{Address: DefaultAddress, Command: CmdCalibrateSinglePoint, Payload: payload}
}

// NewSelfCalibrationFrame returns the request that enables or disables the sensor's
// automatic baseline correction.
func NewSelfCalibrationFrame(enabled bool) *Frame {
	flag := selfCalibrationOff
	if enabled {
		flag = selfCalibrationOn
	}

	return &Frame{Address: DefaultAddress, Command: CmdSelfCalibration, Payload: []byte{flag}}
}

// ValidateResponse verifies the trailing checksum of a response.
//
// Responses shorter than two bytes carry no checksum and are accepted as is.
func ValidateResponse(resp []byte) error {
	n := len(resp)
	if n < checksumSize {
		return nil
	}

	wire := binary.BigEndian.Uint16(resp[n-checksumSize:])
	calc := Checksum(resp[:n-checksumSize])
	if wire != calc {
		return fmt.Errorf("%w: wire=0x%04X, computed=0x%04X", ErrInvalidCRC, wire, calc)
	}

	return nil
}

// ParseGasConcentration decodes a validated gas concentration response into the CO2
// concentration in ppm and the sensor status byte.
//
// Data format:
//
//	[Header(7)][PPM(4, big-endian)][Status(1)][Checksum(2)]
func ParseGasConcentration(resp []byte) (ppm uint32, status byte, err error) {
	if len(resp) < GetGasConcentrationResponseLen {
		return 0, 0, fmt.Errorf("%w: gas concentration got %d bytes, want %d",
			ErrShortResponse, len(resp), GetGasConcentrationResponseLen)
	}

	ppm = binary.BigEndian.Uint32(resp[payloadOffset : payloadOffset+4])
	status = resp[payloadOffset+4]

	return ppm, status, nil
}

// ParseAirPressureReference decodes a validated air pressure reference response.
//
// Data format:
//
//	[Header(7)][hPa(2, big-endian)][Checksum(2)]
func ParseAirPressureReference(resp []byte) (uint16, error) {
	if len(resp) < GetAirPressureReferenceResponseLen {
		return 0, fmt.Errorf("%w: air pressure reference got %d bytes, want %d",
			ErrShortResponse, len(resp), GetAirPressureReferenceResponseLen)
	}

	return binary.BigEndian.Uint16(resp[payloadOffset : payloadOffset+2]), nil
}

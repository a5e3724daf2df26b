package mtp40f

import (
	"errors"
	"fmt"
)

// ErrorCode is the device's last-error code, as reported to status consumers.
type ErrorCode uint16

const (
	CodeOK                 ErrorCode = 0x00
	CodeInvalidAirPressure ErrorCode = 0x01
	CodeInvalidGasLevel    ErrorCode = 0x02
	CodeInvalidCRC         ErrorCode = 0x10
	CodeNoStream           ErrorCode = 0x20
	CodeRequestFailed      ErrorCode = 0xFFFF
)

// String returns the name of the error code.
func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeInvalidAirPressure:
		return "InvalidAirPressure"
	case CodeInvalidGasLevel:
		return "InvalidGasLevel"
	case CodeInvalidCRC:
		return "InvalidCRC"
	case CodeNoStream:
		return "NoStream"
	case CodeRequestFailed:
		return "RequestFailed"
	default:
		return fmt.Sprintf("ErrorCode(0x%04X)", uint16(c))
	}
}

// Sentinel errors for the MTP40-F protocol.
var (
	// Recorded in the last-error slot.
	ErrInvalidAirPressure = errors.New("mtp40f: air pressure out of range")
	ErrInvalidGasLevel    = errors.New("mtp40f: invalid gas level status")
	ErrInvalidCRC         = errors.New("mtp40f: checksum mismatch")
	ErrNoStream           = errors.New("mtp40f: no transport")
	ErrRequestFailed      = errors.New("mtp40f: request failed")

	// Poll gate results. These are not failures and never touch the last-error slot.
	ErrWarmingUp   = errors.New("mtp40f: sensor warming up")
	ErrPollTooSoon = errors.New("mtp40f: poll interval not elapsed")

	ErrShortResponse = errors.New("mtp40f: response too short")
)

// CodeOf maps err to the error code recorded for it.
//
// A nil error maps to CodeOK. Errors that are not one of the protocol sentinels
// (context cancellation, transport I/O errors) map to CodeRequestFailed.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidAirPressure):
		return CodeInvalidAirPressure
	case errors.Is(err, ErrInvalidGasLevel):
		return CodeInvalidGasLevel
	case errors.Is(err, ErrInvalidCRC):
		return CodeInvalidCRC
	case errors.Is(err, ErrNoStream):
		return CodeNoStream
	default:
		return CodeRequestFailed
	}
}

// isGateErr reports whether err is a poll gate result rather than a failure.
func isGateErr(err error) bool {
	return errors.Is(err, ErrWarmingUp) || errors.Is(err, ErrPollTooSoon)
}

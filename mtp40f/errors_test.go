package mtp40f

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{err: nil, want: CodeOK},
		{err: ErrInvalidAirPressure, want: CodeInvalidAirPressure},
		{err: fmt.Errorf("%w: status 0x01", ErrInvalidGasLevel), want: CodeInvalidGasLevel},
		{err: fmt.Errorf("wrapped: %w", ErrInvalidCRC), want: CodeInvalidCRC},
		{err: ErrNoStream, want: CodeNoStream},
		{err: ErrRequestFailed, want: CodeRequestFailed},
		{err: fmt.Errorf("%w: %w", ErrRequestFailed, context.Canceled), want: CodeRequestFailed},
		{err: errors.New("anything else"), want: CodeRequestFailed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeOf(tt.err), "err=%v", tt.err)
	}
}

func TestErrorCode_Values(t *testing.T) {
	assert.Equal(t, uint16(0x00), uint16(CodeOK))
	assert.Equal(t, uint16(0x01), uint16(CodeInvalidAirPressure))
	assert.Equal(t, uint16(0x02), uint16(CodeInvalidGasLevel))
	assert.Equal(t, uint16(0x10), uint16(CodeInvalidCRC))
	assert.Equal(t, uint16(0x20), uint16(CodeNoStream))
	assert.Equal(t, uint16(0xFFFF), uint16(CodeRequestFailed))
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "OK", CodeOK.String())
	assert.Equal(t, "InvalidCRC", CodeInvalidCRC.String())
	assert.Equal(t, "RequestFailed", CodeRequestFailed.String())
	assert.Equal(t, "ErrorCode(0x0042)", ErrorCode(0x42).String())
}

func TestIsGateErr(t *testing.T) {
	assert.True(t, isGateErr(ErrWarmingUp))
	assert.True(t, isGateErr(ErrPollTooSoon))
	assert.False(t, isGateErr(ErrRequestFailed))
	assert.False(t, isGateErr(nil))
}

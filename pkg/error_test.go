package pkg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusOK, "ok"},
		{StatusBusy, "busy"},
		{StatusFail, "fail"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusOK},
		{"busy", ErrBusy, StatusBusy},
		{"wrapped busy", fmt.Errorf("open 0x81: %w", ErrBusy), StatusBusy},
		{"open", ErrEndpointOpen, StatusFail},
		{"foreign", errors.New("boom"), StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestSentinelErrors(t *testing.T) {
	errs := []error{
		ErrPortCount,
		ErrStringTooLong,
		ErrInvalidParameter,
		ErrEndpointOpen,
		ErrEndpointClose,
		ErrUnsupportedMode,
		ErrNotConfigured,
		ErrInvalidEndpoint,
		ErrBufferTooSmall,
		ErrBusy,
		ErrInvalidRequest,
		ErrNotSupported,
		ErrDescriptorTooShort,
		ErrDescriptorTypeMismatch,
	}

	for i, err1 := range errs {
		assert.NotNil(t, err1, "error %d", i)
		for j, err2 := range errs {
			if i != j {
				assert.False(t, errors.Is(err1, err2), "error %d and %d are equal", i, j)
			}
		}
	}
}

package morph

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/morph/backend"
	"github.com/gogpu/morph/internal/launch"
)

func TestCodeTable(t *testing.T) {
	tests := []struct {
		code Code
		name string
		kind Kind
	}{
		{CodeOK, "OK", KindNone},
		{CodeDeviceNotFound, "DeviceNotFound", KindDevice},
		{CodeDeviceUnavailable, "DeviceUnavailable", KindDevice},
		{CodeOutOfDeviceMemory, "OutOfDeviceMemory", KindAllocation},
		{CodeNotReserved, "NotReserved", KindState},
		{CodeAlreadyReserved, "AlreadyReserved", KindState},
		{CodeNotLoaded, "NotLoaded", KindState},
		{CodeInvalidLaunchConfig, "InvalidLaunchConfig", KindConfig},
		{CodeInvalidImageSize, "InvalidImageSize", KindConfig},
		{CodeInvalidRadius, "InvalidRadius", KindConfig},
		{CodeSizeMismatch, "SizeMismatch", KindTransfer},
		{CodeTransferFailed, "TransferFailed", KindTransfer},
		{CodeKernelFailed, "KernelFailed", KindDevice},
		{CodeEngineClosed, "EngineClosed", KindState},
		{CodeUnknown, "Unknown", KindNone},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.name {
			t.Errorf("Code(%d).String() = %q, want %q", tt.code, got, tt.name)
		}
		if got := tt.code.Kind(); got != tt.kind {
			t.Errorf("Code(%d).Kind() = %v, want %v", tt.code, got, tt.kind)
		}
		if tt.code.Description() == "" {
			t.Errorf("Code(%d).Description() is empty", tt.code)
		}
	}
	if got := Code(42).String(); got != "Code(42)" {
		t.Errorf("Code(42).String() = %q", got)
	}
	if got := Code(42).Description(); got != "unknown error" {
		t.Errorf("Code(42).Description() = %q, want %q", got, "unknown error")
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{KindNone, "None"},
		{KindDevice, "DeviceError"},
		{KindAllocation, "AllocationError"},
		{KindState, "StateError"},
		{KindConfig, "ConfigError"},
		{KindTransfer, "TransferError"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("driver lost")
	err := newError("erode", CodeKernelFailed, cause)

	if !errors.Is(err, ErrKernelFailed) {
		t.Error("errors.Is(err, ErrKernelFailed) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if errors.Is(err, ErrNotLoaded) {
		t.Error("errors.Is(err, ErrNotLoaded) = true")
	}
	want := "morph: erode: kernel failed: driver lost"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Kind() != KindDevice {
		t.Errorf("Kind() = %v", err.Kind())
	}

	wrapped := fmt.Errorf("pipeline: %w", err)
	if CodeOf(wrapped) != CodeKernelFailed || KindOf(wrapped) != KindDevice {
		t.Errorf("CodeOf/KindOf through fmt wrap = %v/%v", CodeOf(wrapped), KindOf(wrapped))
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(nil) != CodeOK {
		t.Errorf("CodeOf(nil) = %v", CodeOf(nil))
	}
	if CodeOf(errors.New("x")) != CodeUnknown {
		t.Errorf("CodeOf(plain) = %v", CodeOf(errors.New("x")))
	}
	if KindOf(nil) != KindNone {
		t.Errorf("KindOf(nil) = %v", KindOf(nil))
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback Code
		want     Code
	}{
		{"launch", fmt.Errorf("x: %w", launch.ErrInvalidConfig), CodeKernelFailed, CodeInvalidLaunchConfig},
		{"size", launch.ErrInvalidSize, CodeKernelFailed, CodeInvalidImageSize},
		{"oom", backend.ErrOutOfMemory, CodeUnknown, CodeOutOfDeviceMemory},
		{"budget", backend.ErrMemoryBudgetExceeded, CodeUnknown, CodeOutOfDeviceMemory},
		{"mismatch", backend.ErrSizeMismatch, CodeTransferFailed, CodeSizeMismatch},
		{"unknown buffer", backend.ErrUnknownBuffer, CodeKernelFailed, CodeNotReserved},
		{"closed", backend.ErrDeviceClosed, CodeKernelFailed, CodeDeviceUnavailable},
		{"other", errors.New("boom"), CodeTransferFailed, CodeTransferFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap("op", tt.err, tt.fallback)
			if got := CodeOf(err); got != tt.want {
				t.Errorf("wrap() code = %v, want %v", got, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("wrap() lost the cause")
			}
		})
	}

	if wrap("op", nil, CodeUnknown) != nil {
		t.Error("wrap(nil) != nil")
	}
	inner := newError("reserve", CodeAlreadyReserved, nil)
	if got := wrap("load", inner, CodeUnknown); got != inner {
		t.Errorf("wrap(*Error) = %v, want it unchanged", got)
	}
	if !strings.HasPrefix(inner.Error(), "morph: reserve:") {
		t.Errorf("Error() = %q", inner.Error())
	}
}

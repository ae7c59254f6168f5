package morph

import (
	"errors"
	"fmt"

	"github.com/gogpu/morph/backend"
	"github.com/gogpu/morph/internal/launch"
)

// Kind classifies errors into the failure families of the engine.
type Kind uint8

const (
	// KindNone is the kind of a nil or unclassified error.
	KindNone Kind = iota
	// KindDevice covers device enumeration, selection and execution failures.
	KindDevice
	// KindAllocation covers device memory reservation failures.
	KindAllocation
	// KindState covers operations invoked in the wrong lifecycle state.
	KindState
	// KindConfig covers invalid launch, size or radius parameters.
	KindConfig
	// KindTransfer covers host/device copy failures.
	KindTransfer
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "DeviceError"
	case KindAllocation:
		return "AllocationError"
	case KindState:
		return "StateError"
	case KindConfig:
		return "ConfigError"
	case KindTransfer:
		return "TransferError"
	default:
		return "None"
	}
}

// Code is the stable numeric identity of an error. Codes are what the flat
// package returns; inside Go, prefer errors.Is with the sentinels below.
type Code int

// Error codes. Values are stable.
const (
	CodeOK                  Code = 0
	CodeDeviceNotFound      Code = 1
	CodeDeviceUnavailable   Code = 2
	CodeOutOfDeviceMemory   Code = 3
	CodeNotReserved         Code = 4
	CodeAlreadyReserved     Code = 5
	CodeNotLoaded           Code = 6
	CodeInvalidLaunchConfig Code = 7
	CodeInvalidImageSize    Code = 8
	CodeInvalidRadius       Code = 9
	CodeSizeMismatch        Code = 10
	CodeTransferFailed      Code = 11
	CodeKernelFailed        Code = 12
	CodeEngineClosed        Code = 13
	CodeUnknown             Code = 99
)

// Sentinel errors, one per code.
var (
	ErrDeviceNotFound      = errors.New("morph: device not found")
	ErrDeviceUnavailable   = errors.New("morph: device unavailable")
	ErrOutOfDeviceMemory   = errors.New("morph: out of device memory")
	ErrNotReserved         = errors.New("morph: buffers not reserved")
	ErrAlreadyReserved     = errors.New("morph: buffers already reserved")
	ErrNotLoaded           = errors.New("morph: no image loaded")
	ErrInvalidLaunchConfig = errors.New("morph: invalid launch configuration")
	ErrInvalidImageSize    = errors.New("morph: invalid image size")
	ErrInvalidRadius       = errors.New("morph: invalid radius")
	ErrSizeMismatch        = errors.New("morph: host buffer size mismatch")
	ErrTransferFailed      = errors.New("morph: transfer failed")
	ErrKernelFailed        = errors.New("morph: kernel failed")
	ErrEngineClosed        = errors.New("morph: engine closed")
	ErrUnknown             = errors.New("morph: unknown error")
)

type codeInfo struct {
	kind     Kind
	sentinel error
	name     string
}

var codes = map[Code]codeInfo{
	CodeDeviceNotFound:      {KindDevice, ErrDeviceNotFound, "DeviceNotFound"},
	CodeDeviceUnavailable:   {KindDevice, ErrDeviceUnavailable, "DeviceUnavailable"},
	CodeOutOfDeviceMemory:   {KindAllocation, ErrOutOfDeviceMemory, "OutOfDeviceMemory"},
	CodeNotReserved:         {KindState, ErrNotReserved, "NotReserved"},
	CodeAlreadyReserved:     {KindState, ErrAlreadyReserved, "AlreadyReserved"},
	CodeNotLoaded:           {KindState, ErrNotLoaded, "NotLoaded"},
	CodeInvalidLaunchConfig: {KindConfig, ErrInvalidLaunchConfig, "InvalidLaunchConfig"},
	CodeInvalidImageSize:    {KindConfig, ErrInvalidImageSize, "InvalidImageSize"},
	CodeInvalidRadius:       {KindConfig, ErrInvalidRadius, "InvalidRadius"},
	CodeSizeMismatch:        {KindTransfer, ErrSizeMismatch, "SizeMismatch"},
	CodeTransferFailed:      {KindTransfer, ErrTransferFailed, "TransferFailed"},
	CodeKernelFailed:        {KindDevice, ErrKernelFailed, "KernelFailed"},
	CodeEngineClosed:        {KindState, ErrEngineClosed, "EngineClosed"},
	CodeUnknown:             {KindNone, ErrUnknown, "Unknown"},
}

// String returns the code name, e.g. "NotReserved".
func (c Code) String() string {
	if c == CodeOK {
		return "OK"
	}
	if ci, ok := codes[c]; ok {
		return ci.name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Kind returns the family of the code.
func (c Code) Kind() Kind {
	return codes[c].kind
}

// Description returns a human-readable description of the code.
func (c Code) Description() string {
	if c == CodeOK {
		return "no error"
	}
	ci, ok := codes[c]
	if !ok {
		ci = codes[CodeUnknown]
	}
	return ci.sentinel.Error()[len("morph: "):]
}

// Error is the error returned by engine operations.
type Error struct {
	// Op is the operation that failed, e.g. "reserve" or "erode".
	Op string

	// Code identifies the failure.
	Code Code

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "morph: " + e.Op + ": " + e.Code.Description()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the code sentinel and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Kind returns the family of the error.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

func (e *Error) sentinel() error {
	if ci, ok := codes[e.Code]; ok {
		return ci.sentinel
	}
	return ErrUnknown
}

// CodeOf returns the code of err: CodeOK for nil, the code of a wrapped
// *Error, or CodeUnknown for anything else.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// KindOf returns the family of err.
func KindOf(err error) Kind {
	return CodeOf(err).Kind()
}

func newError(op string, code Code, cause error) *Error {
	return &Error{Op: op, Code: code, Err: cause}
}

// wrap classifies an error from a lower layer. fallback is used when the
// cause does not identify a more precise code.
func wrap(op string, err error, fallback Code) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	code := fallback
	switch {
	case errors.Is(err, launch.ErrInvalidConfig):
		code = CodeInvalidLaunchConfig
	case errors.Is(err, launch.ErrInvalidSize):
		code = CodeInvalidImageSize
	case errors.Is(err, backend.ErrOutOfMemory), errors.Is(err, backend.ErrMemoryBudgetExceeded):
		code = CodeOutOfDeviceMemory
	case errors.Is(err, backend.ErrSizeMismatch):
		code = CodeSizeMismatch
	case errors.Is(err, backend.ErrUnknownBuffer):
		code = CodeNotReserved
	case errors.Is(err, backend.ErrDeviceClosed), errors.Is(err, backend.ErrBackendNotAvailable):
		code = CodeDeviceUnavailable
	}
	return newError(op, code, err)
}

package emulator

import (
	"errors"

	"github.com/ezrec/vm16/translate"
)

var f = translate.From

var (
	ErrSnapshotVersion = errors.New(f("snapshot version unsupported"))
	ErrSnapshotMemory  = errors.New(f("snapshot memory size mismatch"))
	ErrSnapshotFault   = errors.New(f("snapshot fault unknown"))
	ErrSnapshotState   = errors.New(f("snapshot state invalid"))
)

// ErrRuntime indicates the source location of a runtime error.
type ErrRuntime struct {
	LineNo int    // Source line, or 0 if unknown.
	Ip     uint16 // Address of the faulting instruction.
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("ip 0x%04x %v", err.Ip, err.Err)
	}
	return f("line %d %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

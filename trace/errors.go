package trace

import (
	"errors"
	"fmt"

	"tracetrigger/process"
)

// Kind classifies why a resolution failed.
type Kind int

const (
	ImageUnreadable Kind = iota + 1
	BadImageFormat
	SectionCountUnexpected
	SignatureNotFound
	SignatureAmbiguous
	CandidateOutOfBounds
	DecodeFailed
	UnexpectedOpcodeOrShape
	MemoryUnreadable
)

var (
	ErrImageUnreadable         = errors.New("image file unreadable")
	ErrBadImageFormat          = errors.New("bad image format")
	ErrSectionCountUnexpected  = errors.New("unexpected executable section count")
	ErrSignatureNotFound       = errors.New("trace signature not found")
	ErrSignatureAmbiguous      = errors.New("trace signature ambiguous")
	ErrCandidateOutOfBounds    = errors.New("candidate out of bounds")
	ErrDecodeFailed            = errors.New("instruction decode failed")
	ErrUnexpectedOpcodeOrShape = errors.New("unexpected opcode or instruction shape")
	ErrMemoryUnreadable        = errors.New("remote memory unreadable")
)

var kindErrors = map[Kind]error{
	ImageUnreadable:         ErrImageUnreadable,
	BadImageFormat:          ErrBadImageFormat,
	SectionCountUnexpected:  ErrSectionCountUnexpected,
	SignatureNotFound:       ErrSignatureNotFound,
	SignatureAmbiguous:      ErrSignatureAmbiguous,
	CandidateOutOfBounds:    ErrCandidateOutOfBounds,
	DecodeFailed:            ErrDecodeFailed,
	UnexpectedOpcodeOrShape: ErrUnexpectedOpcodeOrShape,
	MemoryUnreadable:        ErrMemoryUnreadable,
}

func (k Kind) String() string {
	if err, ok := kindErrors[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Transient reports whether retrying the resolution later may succeed.
func (k Kind) Transient() bool {
	return k == MemoryUnreadable || k == ImageUnreadable
}

// ResolveError describes a failed step of Resolve. Address is the remote
// address involved, or 0 when the step is not tied to one.
type ResolveError struct {
	Kind    Kind
	Op      string
	Address process.ProcessMemoryAddress
	Err     error
}

func (e *ResolveError) Error() string {
	msg := e.Op
	if e.Address != 0 {
		msg += " at " + e.Address.ToString()
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolveError) Unwrap() []error {
	errs := []error{kindErrors[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func resolveError(kind Kind, op string, addr process.ProcessMemoryAddress, err error) *ResolveError {
	return &ResolveError{Kind: kind, Op: op, Address: addr, Err: err}
}

package nif

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a fatal load or save failure.
type Kind uint8

const (
	// KindSourceNotFound means neither a loose file nor an archive entry exists.
	KindSourceNotFound Kind = iota + 1
	// KindFileRead means a loose file exists but could not be read.
	KindFileRead
	// KindArchiveRead means an archive reported an entry it could not return.
	KindArchiveRead
	// KindSourceAccess means the path itself could not be inspected.
	KindSourceAccess
	// KindHeaderParse means the container header is missing or invalid.
	KindHeaderParse
	// KindBlockDecode means a recognized block type carried corrupt data.
	KindBlockDecode
	// KindWrite means the container could not be written.
	KindWrite
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindSourceNotFound:
		return "source not found"
	case KindFileRead:
		return "file read"
	case KindArchiveRead:
		return "archive read"
	case KindSourceAccess:
		return "source access"
	case KindHeaderParse:
		return "header parse"
	case KindBlockDecode:
		return "block decode"
	case KindWrite:
		return "write"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// ExitCode returns the process exit status a command-line tool uses for k.
func (k Kind) ExitCode() int {
	switch k {
	case KindFileRead:
		return 500
	case KindArchiveRead:
		return 501
	case KindSourceAccess:
		return 502
	case KindWrite:
		return 503
	case KindSourceNotFound:
		return 404
	case KindHeaderParse:
		return 510
	case KindBlockDecode:
		return 511
	default:
		return 1
	}
}

// Sentinel errors matched by *Error through errors.Is.
var (
	// ErrSourceNotFound matches KindSourceNotFound.
	ErrSourceNotFound = errors.New("nif: source not found")

	// ErrSourceRead matches KindFileRead and KindArchiveRead.
	ErrSourceRead = errors.New("nif: source read failed")

	// ErrSourceAccess matches KindSourceAccess.
	ErrSourceAccess = errors.New("nif: source access failed")

	// ErrHeaderParse matches KindHeaderParse.
	ErrHeaderParse = errors.New("nif: header parse failed")

	// ErrBlockDecode matches KindBlockDecode.
	ErrBlockDecode = errors.New("nif: block decode failed")

	// ErrWrite matches KindWrite.
	ErrWrite = errors.New("nif: write failed")
)

// Error is a fatal load or save failure.
//
// Block is the index of the failing block, or -1 when the failure is not
// tied to a block.
type Error struct {
	Kind  Kind
	Name  string
	Block int
	Type  string
	Err   error
}

func newError(kind Kind, name string, err error) *Error {
	return &Error{Kind: kind, Name: name, Block: -1, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("nif: ")
	sb.WriteString(e.Kind.String())
	if e.Name != "" {
		sb.WriteString(" ")
		sb.WriteString(strconv.Quote(e.Name))
	}
	if e.Block >= 0 {
		fmt.Fprintf(&sb, " block %d", e.Block)
		if e.Type != "" {
			fmt.Fprintf(&sb, " (%s)", e.Type)
		}
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrSourceNotFound:
		return e.Kind == KindSourceNotFound
	case ErrSourceRead:
		return e.Kind == KindFileRead || e.Kind == KindArchiveRead
	case ErrSourceAccess:
		return e.Kind == KindSourceAccess
	case ErrHeaderParse:
		return e.Kind == KindHeaderParse
	case ErrBlockDecode:
		return e.Kind == KindBlockDecode
	case ErrWrite:
		return e.Kind == KindWrite
	default:
		return false
	}
}

// ExitCode maps err to a process exit status: 0 for nil, the kind's status
// for an *Error, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.ExitCode()
	}
	return 1
}

package storage

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindBucketNotFound
	KindValidation
	KindTransport
	KindPermission
	KindStore
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindBucketNotFound:
		return "bucket not found"
	case KindValidation:
		return "invalid argument"
	case KindTransport:
		return "transport failure"
	case KindPermission:
		return "permission denied"
	case KindStore:
		return "store failure"
	default:
		return "unknown failure"
	}
}

// Error is returned by every Client operation. Backends fill Kind and Err,
// the Client adds Op, Bucket and Key.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Kind   ErrorKind
	Err    error
}

var (
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrBucketNotFound = &Error{Kind: KindBucketNotFound}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrTransport      = &Error{Kind: KindTransport}
	ErrPermission     = &Error{Kind: KindPermission}
)

func (e *Error) Error() string {
	detail := e.Kind.String()
	if e.Err != nil {
		detail = e.Err.Error()
	}

	target := e.Bucket
	if e.Key != "" {
		target += "/" + e.Key
	}
	switch {
	case e.Op == "" && target == "":
		return detail
	case e.Op == "":
		return fmt.Sprintf("%s: %s", target, detail)
	case target == "":
		return fmt.Sprintf("%s: %s", e.Op, detail)
	default:
		return fmt.Sprintf("%s %s: %s", e.Op, target, detail)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, ErrNotFound) holds for any
// not-found failure regardless of operation or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" || t.Bucket != "" || t.Key != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func validationError(format string, args ...any) *Error {
	return newError(KindValidation, fmt.Errorf(format, args...))
}

// annotate attaches the operation and target to a backend error. Errors that
// did not come through the mapping are reported as store failures.
func annotate(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		out := *e
		out.Op, out.Bucket, out.Key = op, bucket, key
		return &out
	}
	return &Error{Op: op, Bucket: bucket, Key: key, Kind: KindStore, Err: err}
}

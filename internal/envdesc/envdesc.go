// Package envdesc augments a user-supplied environment value with the host
// state a cache instance needs to guard against: architecture, OS, Go
// runtime version, and the shape (and, optionally, source) of the operation
// being cached. Changing any of these invalidates prior results the same
// way a changed environment value does, per a cache instance's
// construction-time environment-clear policy.
package envdesc

import (
	"reflect"
	"runtime"
)

// SourceTextProvider is the Go analogue of "the operation's source text":
// Go cannot portably recover a function's own source or bytecode at
// runtime, so an operation that wants its implementation fingerprinted as
// part of the environment must opt in by implementing this.
type SourceTextProvider interface {
	SourceText() []byte
}

// Descriptor is the canonicalizable value actually pinned as a cache
// instance's environment row. Its CanonicalFields implementation lets it
// compose with any caller-supplied environment value via canon.Encode
// without the canonicalizer needing to know about this package.
type Descriptor struct {
	UserEnvironment any
	Arch            string
	OS              string
	GoVersion       string
	OperationType   string
	OperationSource []byte
}

// Capture builds a Descriptor for op, wrapping userEnv.
func Capture(op any, userEnv any) Descriptor {
	d := Descriptor{
		UserEnvironment: userEnv,
		Arch:            runtime.GOARCH,
		OS:              runtime.GOOS,
		GoVersion:       runtime.Version(),
		OperationType:   reflect.TypeOf(op).String(),
	}
	if src, ok := op.(SourceTextProvider); ok {
		d.OperationSource = src.SourceText()
	}
	return d
}

// CanonicalFields implements canon.Canonicalizable.
func (d Descriptor) CanonicalFields() map[string]any {
	return map[string]any{
		"UserEnvironment": d.UserEnvironment,
		"Arch":            d.Arch,
		"OS":              d.OS,
		"GoVersion":       d.GoVersion,
		"OperationType":   d.OperationType,
		"OperationSource": d.OperationSource,
	}
}

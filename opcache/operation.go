package opcache

import (
	"context"

	"github.com/dreamware/opcache/internal/config"
)

// Operation is the user-supplied computation a Cache memoizes. args is the
// hierarchical key Call built from the caller's positional arguments.
type Operation func(ctx context.Context, args []any) ([]byte, error)

// NamedArgs lets a trailing positional argument opt into becoming the
// final subkey as a name->value mapping instead of an opaque record,
// so a call's hierarchical key is positional + (named_mapping,) when a
// named mapping is present, or plain positional otherwise.
// map[string]any satisfies this directly without the interface.
type NamedArgs interface {
	NamedArgs() map[string]any
}

// Codec marshals a typed argument value to/from the []any form the
// canonicalizer understands, and a typed result to/from the raw payload
// bytes a Cache stores.
type Codec[In, Out any] interface {
	EncodeArgs(in In) []any
	DecodeArgs(args []any) (In, error)
	EncodeResult(out Out) ([]byte, error)
	DecodeResult(payload []byte) (Out, error)
}

// Bind constructs a Cache for fn and returns a typed callable over it, so
// the common case — a Go function taking one argument value and returning
// one result value — never touches []any or raw payload bytes directly.
func Bind[In, Out any](identifier string, fn func(ctx context.Context, in In) (Out, error), codec Codec[In, Out], env any, opts ...config.Option) (func(ctx context.Context, in In) (Out, error), error) {
	op := Operation(func(ctx context.Context, args []any) ([]byte, error) {
		in, err := codec.DecodeArgs(args)
		if err != nil {
			return nil, err
		}
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		return codec.EncodeResult(out)
	})

	cache, err := New(identifier, op, env, opts...)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, in In) (Out, error) {
		var zero Out
		payload, err := cache.Call(ctx, codec.EncodeArgs(in)...)
		if err != nil {
			return zero, err
		}
		return codec.DecodeResult(payload)
	}, nil
}

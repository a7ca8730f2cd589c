package idl

// maxCodecDepth bounds typedef nesting during a single encode or decode, so a
// self-referential type cannot recurse without bound.
const maxCodecDepth = 512

type codecOptions struct {
	strictBool bool
}

// CodecOption configures Encode and Decode.
type CodecOption func(*codecOptions)

// WithStrictBool rejects boolean bytes other than 0 and 1 when decoding.
// By default any nonzero byte decodes as true, matching what programs accept
// on chain.
func WithStrictBool() CodecOption {
	return func(o *codecOptions) {
		o.strictBool = true
	}
}

func newCodecOptions(opts []CodecOption) codecOptions {
	var o codecOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

package frame

import "fmt"

// Decoder reads a vendor-format spectrometer file and produces a RawFrame.
// Implementations live outside the reduction pipeline so the core never
// depends on which decoding backend is in use.
type Decoder interface {
	Decode(path string) (*RawFrame, error)
}

// DecodeError wraps a failure from a decoding backend.  The pipeline
// propagates it unchanged; a decode failure is fatal only for the frame
// that triggered it.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

package vrkai

import (
	"errors"
	"fmt"
)

var (
	// ErrCodec is the kind shared by every encode or decode failure.
	ErrCodec = errors.New("codec failure")

	// ErrUnsupportedVersion is returned for a version tag this build cannot
	// decode. Decoding never falls back to a best-effort parse.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrNotVRKai is returned when a bundle entry does not hold an encoded
	// VRKai.
	ErrNotVRKai = errors.New("entry is not a vrkai")
)

// Stage names the pipeline step a decode failed in.
type Stage string

const (
	StageDecode     Stage = "decode"
	StageDecompress Stage = "decompress"
	StageParse      Stage = "parse"
	StageVersion    Stage = "version"
	StageEncode     Stage = "encode"
)

// DecodeError reports which stage of the codec pipeline failed.
type DecodeError struct {
	Stage Stage
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s stage: %v", ErrCodec, e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches ErrCodec.
func (e *DecodeError) Is(target error) bool {
	return target == ErrCodec
}

func stageErr(stage Stage, err error) error {
	return &DecodeError{Stage: stage, Err: err}
}

// Package vrkai implements the VRKai interchange format: one vector resource
// plus an optional source file map, serialized as JSON, lz4 block compressed
// with a size prefix and base64 encoded. It also provides VRPack bundles of
// many VRKai.
package vrkai

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
)

// Version tags a VRKai wire layout.
type Version string

// VersionV1 is the only layout this build reads and writes.
const VersionV1 Version = "V1"

// MaxDecodedSize bounds the uncompressed size a payload may declare.
const MaxDecodedSize = 1 << 30

// VRKai bundles one resource with the files it was built from.
type VRKai struct {
	Resource        resource.Base           `json:"resource"`
	SourceFileMap   *resource.SourceFileMap `json:"source_file_map,omitempty"`
	Version         Version                 `json:"version"`
	Metadata        map[string]string       `json:"metadata"`
	RAGStrategy     string                  `json:"rag_strategy,omitempty"`
	TotalTokenCount int                     `json:"total_token_count"`
}

// New wraps res and an optional source file map at the current version.
// Token counts come from counter; a nil counter uses the process default.
func New(res resource.Resource, sfm *resource.SourceFileMap, counter *resource.TokenCounter) *VRKai {
	if counter == nil {
		counter = resource.DefaultTokenCounter()
	}
	return &VRKai{
		Resource:        resource.Base{Resource: res},
		SourceFileMap:   sfm,
		Version:         VersionV1,
		Metadata:        make(map[string]string),
		TotalTokenCount: resource.CountResourceTokens(res, counter),
	}
}

// Name returns the wrapped resource's name.
func (v *VRKai) Name() string {
	if v.Resource.Resource == nil {
		return ""
	}
	return v.Resource.Resource.Name()
}

// InsertMetadata sets key to value.
func (v *VRKai) InsertMetadata(key, value string) {
	if v.Metadata == nil {
		v.Metadata = make(map[string]string)
	}
	v.Metadata[key] = value
}

// GetMetadata returns the value stored at key.
func (v *VRKai) GetMetadata(key string) (string, bool) {
	value, ok := v.Metadata[key]
	return value, ok
}

// RemoveMetadata deletes key and returns its previous value.
func (v *VRKai) RemoveMetadata(key string) (string, bool) {
	value, ok := v.Metadata[key]
	delete(v.Metadata, key)
	return value, ok
}

// EncodeBase64 serializes v to its transfer string.
func (v *VRKai) EncodeBase64() (string, error) {
	raw, err := v.encode()
	observe("vrkai", "encode", err)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// EncodeBytes returns the UTF-8 bytes of EncodeBase64.
func (v *VRKai) EncodeBytes() ([]byte, error) {
	s, err := v.EncodeBase64()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (v *VRKai) encode() ([]byte, error) {
	if v.Version != VersionV1 {
		return nil, stageErr(StageVersion, fmt.Errorf("%w: %q", ErrUnsupportedVersion, v.Version))
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, stageErr(StageEncode, err)
	}
	return compressPrependSize(data)
}

// DecodeBase64 parses a transfer string.
func DecodeBase64(s string) (*VRKai, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		err = stageErr(StageDecode, err)
		observe("vrkai", "decode", err)
		return nil, err
	}
	v, err := decodeCompressed(raw)
	observe("vrkai", "decode", err)
	return v, err
}

// DecodeBytes parses the UTF-8 bytes of a transfer string.
func DecodeBytes(b []byte) (*VRKai, error) {
	return DecodeBase64(string(b))
}

func decodeCompressed(raw []byte) (*VRKai, error) {
	data, err := decompressSizePrepended(raw)
	if err != nil {
		return nil, stageErr(StageDecompress, err)
	}

	var tag struct {
		Version Version `json:"version"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, stageErr(StageParse, err)
	}

	switch tag.Version {
	case VersionV1:
		var v VRKai
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, stageErr(StageParse, err)
		}
		if v.Resource.Resource == nil {
			return nil, stageErr(StageParse, errors.New("payload carries no resource"))
		}
		if v.Metadata == nil {
			v.Metadata = make(map[string]string)
		}
		return &v, nil
	default:
		return nil, stageErr(StageVersion, fmt.Errorf("%w: %q", ErrUnsupportedVersion, tag.Version))
	}
}

// compressPrependSize lz4 block compresses data behind a 4-byte
// little-endian uncompressed length.
func compressPrependSize(data []byte) ([]byte, error) {
	out := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(out, uint32(len(data)))
	n, err := lz4.CompressBlock(data, out[4:], nil)
	if err != nil {
		return nil, stageErr(StageEncode, err)
	}
	if n == 0 && len(data) > 0 {
		return nil, stageErr(StageEncode, errors.New("lz4 produced no output"))
	}
	if n > 0 {
		CompressionRatio.Observe(float64(len(data)) / float64(n))
	}
	return out[:4+n], nil
}

func decompressSizePrepended(raw []byte) ([]byte, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("payload of %d bytes has no size prefix", len(raw))
	}
	size := binary.LittleEndian.Uint32(raw)
	if size > MaxDecodedSize {
		return nil, fmt.Errorf("declared size %d exceeds limit %d", size, MaxDecodedSize)
	}
	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}
	n, err := lz4.UncompressBlock(raw[4:], out)
	if err != nil {
		return nil, err
	}
	if n != int(size) {
		return nil, fmt.Errorf("decompressed %d bytes, expected %d", n, size)
	}
	return out, nil
}

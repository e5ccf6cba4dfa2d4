package mesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"
)

const (
	// Magic opens every encoded mesh frame.
	Magic = "TMSH"
	// FormatVersion is bumped whenever the frame layout changes.
	FormatVersion = 1

	headerSize = 4 + 1 + 4 + 4
)

var (
	ErrBadMagic   = errors.New("mesh: bad magic")
	ErrBadVersion = errors.New("mesh: unsupported version")
	ErrTruncated  = errors.New("mesh: truncated frame")
)

// EncodeAll and DecodeAll are safe for concurrent use, so one encoder and
// one decoder serve the whole process.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Encode serialises m as a little-endian frame and compresses it with zstd.
//
// Layout: magic[4] version[1] vertexCount[u32] indexCount[u32]
// vertices[vertexCount*3 f32] uvs[vertexCount*2 f32] indices[indexCount i32].
func Encode(m *MeshBuffer) ([]byte, error) {
	if m == nil {
		return nil, errors.New("mesh: nil buffer")
	}
	if len(m.UVs) != len(m.Vertices) {
		return nil, fmt.Errorf("mesh: %d uvs for %d vertices", len(m.UVs), len(m.Vertices))
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(m.Vertices)*20 + len(m.Triangles)*4)
	buf.WriteString(Magic)
	buf.WriteByte(FormatVersion)

	w := func(v interface{}) error { return binary.Write(&buf, binary.LittleEndian, v) }
	if err := w(uint32(len(m.Vertices))); err != nil {
		return nil, err
	}
	if err := w(uint32(len(m.Triangles))); err != nil {
		return nil, err
	}
	if err := w(m.Vertices); err != nil {
		return nil, fmt.Errorf("mesh: write vertices: %w", err)
	}
	if err := w(m.UVs); err != nil {
		return nil, fmt.Errorf("mesh: write uvs: %w", err)
	}
	if err := w(m.Triangles); err != nil {
		return nil, fmt.Errorf("mesh: write indices: %w", err)
	}

	return encoder.EncodeAll(buf.Bytes(), nil), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*MeshBuffer, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("mesh: decompress: %w", err)
	}
	if len(raw) < headerSize {
		return nil, ErrTruncated
	}
	if string(raw[:4]) != Magic {
		return nil, ErrBadMagic
	}
	if raw[4] != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, raw[4])
	}

	vertexCount := binary.LittleEndian.Uint32(raw[5:9])
	indexCount := binary.LittleEndian.Uint32(raw[9:13])
	want := uint64(headerSize) + uint64(vertexCount)*20 + uint64(indexCount)*4
	if uint64(len(raw)) < want {
		return nil, ErrTruncated
	}

	m := &MeshBuffer{
		Vertices:  make([]mgl32.Vec3, vertexCount),
		UVs:       make([]mgl32.Vec2, vertexCount),
		Triangles: make([]int32, indexCount),
	}
	r := bytes.NewReader(raw[headerSize:])
	for _, dst := range []interface{}{m.Vertices, m.UVs, m.Triangles} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return nil, ErrTruncated
			}
			return nil, fmt.Errorf("mesh: read body: %w", err)
		}
	}
	return m, nil
}

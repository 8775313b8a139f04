// Package codec implements the per-entry binary record format described in
// SPEC_FULL.md §4.2. No teacher file encodes to this exact wire layout, so
// it is written fresh in the idiom of the teacher's utils.go /
// internal/encoding/utils.go: small top-level encode/decode function pairs
// built on encoding/binary, encoding/base64 and encoding/json.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/shmor3/simse/internal/model"
)

// ErrCorruptRecord is returned by Decode when the bytes are truncated or
// otherwise malformed. The engine treats this as a per-record skip, not a
// fatal error.
var ErrCorruptRecord = fmt.Errorf("codec: corrupt record")

// EncodeVector serializes a vector to base64 of its little-endian f32 bytes.
func EncodeVector(vector []float32) string {
	buf := make([]byte, 4*len(vector))
	for i, f := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(b64 string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrCorruptRecord, err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: truncated embedding", ErrCorruptRecord)
	}
	n := len(raw) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// EncodeMetadata renders metadata as canonical JSON.
func EncodeMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return json.Marshal(metadata)
}

// DecodeMetadata is the inverse of EncodeMetadata.
func DecodeMetadata(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: invalid metadata json: %v", ErrCorruptRecord, err)
	}
	return m, nil
}

func writeChunk(buf *bytes.Buffer, data []byte) error {
	if len(data) > math.MaxInt32 {
		return fmt.Errorf("codec: chunk too large: %d bytes", len(data))
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := buf.Write(data)
	return err
}

func readChunk(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if r.Len() < int(n) {
		return nil, fmt.Errorf("%w: truncated chunk", ErrCorruptRecord)
	}
	buf := make([]byte, n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return buf, nil
}

// Encode serializes a Volume plus its access stats into the binary layout
// specified in SPEC_FULL.md §4.2:
//
//	4B tL | text | 4B eL | emb_b64 | 4B mL | meta_json | 8B ts | 4B ac | 8B la
func Encode(v model.Volume, stats model.AccessStats) ([]byte, error) {
	metaJSON, err := EncodeMetadata(v.Metadata)
	if err != nil {
		return nil, err
	}
	embB64 := EncodeVector(v.Embedding)

	buf := new(bytes.Buffer)
	if err := writeChunk(buf, []byte(v.Text)); err != nil {
		return nil, err
	}
	if err := writeChunk(buf, []byte(embB64)); err != nil {
		return nil, err
	}
	if err := writeChunk(buf, metaJSON); err != nil {
		return nil, err
	}
	tsHi := uint32(uint64(v.Timestamp) >> 32)
	tsLo := uint32(uint64(v.Timestamp))
	if err := binary.Write(buf, binary.BigEndian, tsHi); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, tsLo); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, stats.AccessCount); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, uint64(stats.LastAccessed)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode. id is supplied by the caller (the
// storage backend key), since the on-disk record itself carries no id.
func Decode(id string, data []byte) (model.Volume, model.AccessStats, error) {
	r := bytes.NewReader(data)

	textRaw, err := readChunk(r)
	if err != nil {
		return model.Volume{}, model.AccessStats{}, err
	}
	embRaw, err := readChunk(r)
	if err != nil {
		return model.Volume{}, model.AccessStats{}, err
	}
	metaRaw, err := readChunk(r)
	if err != nil {
		return model.Volume{}, model.AccessStats{}, err
	}

	var tsHi, tsLo uint32
	if err := binary.Read(r, binary.BigEndian, &tsHi); err != nil {
		return model.Volume{}, model.AccessStats{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if err := binary.Read(r, binary.BigEndian, &tsLo); err != nil {
		return model.Volume{}, model.AccessStats{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	var ac uint32
	if err := binary.Read(r, binary.BigEndian, &ac); err != nil {
		return model.Volume{}, model.AccessStats{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	var la uint64
	if err := binary.Read(r, binary.BigEndian, &la); err != nil {
		return model.Volume{}, model.AccessStats{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	if !utf8.Valid(textRaw) {
		return model.Volume{}, model.AccessStats{}, fmt.Errorf("%w: invalid utf-8 text", ErrCorruptRecord)
	}

	embedding, err := DecodeVector(string(embRaw))
	if err != nil {
		return model.Volume{}, model.AccessStats{}, err
	}
	metadata, err := DecodeMetadata(metaRaw)
	if err != nil {
		return model.Volume{}, model.AccessStats{}, err
	}

	ts := int64(uint64(tsHi)<<32 | uint64(tsLo))
	v := model.Volume{
		ID:        id,
		Text:      string(textRaw),
		Embedding: embedding,
		Metadata:  metadata,
		Timestamp: ts,
	}
	stats := model.AccessStats{AccessCount: ac, LastAccessed: int64(la)}
	return v, stats, nil
}

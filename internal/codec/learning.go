package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shmor3/simse/internal/model"
)

// learnedQueryJSON mirrors model.LearnedQuery for JSON transport inside the
// binary envelope; embeddings are still carried as base64 f32, reusing
// EncodeVector/DecodeVector so the learning snapshot shares the same
// primitive encoding as volume records.
type learnedQueryJSON struct {
	Embedding string   `json:"embedding"`
	ResultIDs []string `json:"resultIds"`
	Timestamp int64    `json:"timestamp"`
}

type snapshotJSON struct {
	RingSize  int               `json:"ringSize"`
	Ring      []learnedQueryJSON `json:"ring"`
	Interest  string            `json:"interest"`
	Relevance map[string]uint64 `json:"relevance"`
}

// EncodeLearningSnapshot serializes the learner's state for the reserved
// "__learning" backend key. The envelope is a single length-prefixed JSON
// blob, consistent with the per-entry chunking helpers used for volumes.
func EncodeLearningSnapshot(s model.LearningSnapshot) ([]byte, error) {
	if !s.Enabled {
		return []byte{}, nil
	}
	snap := snapshotJSON{
		RingSize:  s.RingSize,
		Interest:  EncodeVector(s.Interest),
		Relevance: s.Relevance,
	}
	for _, q := range s.Ring {
		snap.Ring = append(snap.Ring, learnedQueryJSON{
			Embedding: EncodeVector(q.Embedding),
			ResultIDs: q.ResultIDs,
			Timestamp: q.Timestamp,
		})
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("codec: encode learning snapshot: %w", err)
	}
	buf := new(bytes.Buffer)
	if err := writeChunk(buf, body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeLearningSnapshot is the inverse of EncodeLearningSnapshot. An empty
// input yields a disabled snapshot, matching the "no __learning key" case
// on first load.
func DecodeLearningSnapshot(data []byte) (model.LearningSnapshot, error) {
	if len(data) == 0 {
		return model.LearningSnapshot{}, nil
	}
	r := bytes.NewReader(data)
	body, err := readChunk(r)
	if err != nil {
		return model.LearningSnapshot{}, err
	}
	var snap snapshotJSON
	if err := json.Unmarshal(body, &snap); err != nil {
		return model.LearningSnapshot{}, fmt.Errorf("%w: invalid learning snapshot json: %v", ErrCorruptRecord, err)
	}
	out := model.LearningSnapshot{
		Enabled:   true,
		RingSize:  snap.RingSize,
		Relevance: snap.Relevance,
	}
	interest, err := DecodeVector(snap.Interest)
	if err != nil {
		return model.LearningSnapshot{}, err
	}
	out.Interest = interest
	for _, q := range snap.Ring {
		emb, err := DecodeVector(q.Embedding)
		if err != nil {
			return model.LearningSnapshot{}, err
		}
		out.Ring = append(out.Ring, model.LearnedQuery{
			Embedding: emb,
			ResultIDs: q.ResultIDs,
			Timestamp: q.Timestamp,
		})
	}
	if out.Relevance == nil {
		out.Relevance = map[string]uint64{}
	}
	return out, nil
}

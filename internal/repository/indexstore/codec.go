package indexstore

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/caselex/caselex/internal/domain"
	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/domain/decision"
)

// Binary aggregate format, MUS encoding:
//
//	version | dim | count | count x (dim x float32, decision fields)
//
// Vectors and decisions are interleaved per entry so the pair can never be
// published separately.
const codecVersion = 1

func encodeAggregate(ai *AreaIndex) []byte {
	vecs, mapping := ai.snapshot()
	dim := ai.Dim()

	size := varint.PositiveInt.Size(codecVersion)
	size += varint.PositiveInt.Size(dim)
	size += varint.PositiveInt.Size(len(mapping))
	for i := range mapping {
		for _, f := range vecs[i] {
			size += raw.Float32.Size(f)
		}
		size += decisionSize(mapping[i])
	}

	bs := make([]byte, size)
	n := varint.PositiveInt.Marshal(codecVersion, bs)
	n += varint.PositiveInt.Marshal(dim, bs[n:])
	n += varint.PositiveInt.Marshal(len(mapping), bs[n:])
	for i := range mapping {
		for _, f := range vecs[i] {
			n += raw.Float32.Marshal(f, bs[n:])
		}
		n += marshalDecision(mapping[i], bs[n:])
	}
	return bs
}

func decodeAggregate(a area.Area, dim int, bs []byte) (*AreaIndex, error) {
	version, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, domain.NewCorruptIndex(string(a), fmt.Sprintf("version: %v", err))
	}
	if version != codecVersion {
		return nil, domain.NewCorruptIndex(string(a), fmt.Sprintf("unsupported format version %d", version))
	}
	fileDim, n1, err := varint.PositiveInt.Unmarshal(bs[n:])
	if err != nil {
		return nil, domain.NewCorruptIndex(string(a), fmt.Sprintf("dim: %v", err))
	}
	n += n1
	if fileDim != dim {
		return nil, domain.NewCorruptIndex(string(a),
			fmt.Sprintf("dimension %d does not match configured %d", fileDim, dim))
	}
	count, n1, err := varint.PositiveInt.Unmarshal(bs[n:])
	if err != nil {
		return nil, domain.NewCorruptIndex(string(a), fmt.Sprintf("count: %v", err))
	}
	n += n1
	// Every entry carries dim float32s plus at least one byte per record
	// field, so count is bounded by the artifact size. Checked before any
	// allocation depends on it.
	if minEntry := dim*4 + 7; count > (len(bs)-n)/minEntry {
		return nil, domain.NewCorruptIndex(string(a),
			fmt.Sprintf("count %d exceeds artifact size %d", count, len(bs)))
	}

	ai, err := NewAreaIndex(a, dim)
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			f, n1, err := raw.Float32.Unmarshal(bs[n:])
			if err != nil {
				return nil, domain.NewCorruptIndex(string(a), fmt.Sprintf("entry %d vector: %v", i, err))
			}
			vec[j] = f
			n += n1
		}
		dec, n1, err := unmarshalDecision(bs[n:])
		if err != nil {
			return nil, domain.NewCorruptIndex(string(a), fmt.Sprintf("entry %d record: %v", i, err))
		}
		n += n1
		added, err := ai.Append(vec, dec)
		if err != nil {
			return nil, domain.NewCorruptIndex(string(a), fmt.Sprintf("entry %d: %v", i, err))
		}
		if !added {
			return nil, domain.NewCorruptIndex(string(a), fmt.Sprintf("duplicate decision id %d", dec.ID()))
		}
	}
	if len(bs) != n {
		return nil, domain.NewCorruptIndex(string(a), fmt.Sprintf("%d trailing bytes", len(bs)-n))
	}
	return ai, nil
}

func decisionSize(d decision.Decision) int {
	return varint.Int64.Size(d.ID()) +
		ord.String.Size(d.Court()) +
		ord.String.Size(d.CaseNumber()) +
		ord.String.Size(d.DecisionNumber()) +
		varint.Int64.Size(d.Date().UnixMicro()) +
		ord.String.Size(d.Summary()) +
		ord.String.Size(d.FullText())
}

func marshalDecision(d decision.Decision, bs []byte) int {
	n := varint.Int64.Marshal(d.ID(), bs)
	n += ord.String.Marshal(d.Court(), bs[n:])
	n += ord.String.Marshal(d.CaseNumber(), bs[n:])
	n += ord.String.Marshal(d.DecisionNumber(), bs[n:])
	n += varint.Int64.Marshal(d.Date().UnixMicro(), bs[n:])
	n += ord.String.Marshal(d.Summary(), bs[n:])
	n += ord.String.Marshal(d.FullText(), bs[n:])
	return n
}

func unmarshalDecision(bs []byte) (decision.Decision, int, error) {
	id, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return decision.Decision{}, 0, fmt.Errorf("id: %w", err)
	}
	court, n1, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return decision.Decision{}, 0, fmt.Errorf("court: %w", err)
	}
	n += n1
	caseNumber, n1, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return decision.Decision{}, 0, fmt.Errorf("case number: %w", err)
	}
	n += n1
	decisionNumber, n1, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return decision.Decision{}, 0, fmt.Errorf("decision number: %w", err)
	}
	n += n1
	dateMicro, n1, err := varint.Int64.Unmarshal(bs[n:])
	if err != nil {
		return decision.Decision{}, 0, fmt.Errorf("date: %w", err)
	}
	n += n1
	summary, n1, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return decision.Decision{}, 0, fmt.Errorf("summary: %w", err)
	}
	n += n1
	fullText, n1, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return decision.Decision{}, 0, fmt.Errorf("full text: %w", err)
	}
	n += n1

	dec := decision.Reconstruct(
		id, court, caseNumber, decisionNumber,
		time.UnixMicro(dateMicro).UTC(), summary, fullText,
	)
	return dec, n, nil
}

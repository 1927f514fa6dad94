package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEncoder is an offline encoder using signed feature hashing over word
// unigrams and bigrams. Vectors are L2-normalized.
type HashEncoder struct {
	Dim int
}

func NewHashEncoder(dim int) *HashEncoder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEncoder{Dim: dim}
}

func (e *HashEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.Dim)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		e.add(vec, tok)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func (e *HashEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Encode(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *HashEncoder) add(vec []float32, feature string) {
	h := fnv.New32a()
	h.Write([]byte(feature))
	sum := h.Sum32()
	idx := int(sum % uint32(e.Dim))
	if sum&(1<<31) != 0 {
		vec[idx]--
	} else {
		vec[idx]++
	}
}

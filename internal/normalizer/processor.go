// Package normalizer maps heterogeneous dataset rows onto the fixed Scholar
// shape using ordered alias lists per target field.
package normalizer

import (
	"ulama/internal/models"
)

// Coverage counts, per target field, how many rows supplied a value for it.
// Defaults (index ids, placeholder names) are not counted.
type Coverage map[Field]int

// Result is the output of one normalization pass.
type Result struct {
	Records  []models.Scholar
	Coverage Coverage
}

// Processor normalizes a whole dataset in input order.
type Processor struct {
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		transformer: NewTransformer(),
	}
}

// Process normalizes rows one by one. The position of each row in rows is its
// fallback id, so callers must pass the full flattened sequence.
func (p *Processor) Process(rows []models.RawRecord) *Result {
	result := &Result{
		Records:  make([]models.Scholar, 0, len(rows)),
		Coverage: make(Coverage, len(Fields)),
	}

	for idx, row := range rows {
		scholar, hits := p.transformer.transform(row, idx)
		result.Records = append(result.Records, scholar)

		for _, f := range hits {
			result.Coverage[f]++
		}
	}

	return result
}

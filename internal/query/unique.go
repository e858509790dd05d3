package query

import (
	"fmt"

	"github.com/dalibo/logforge/internal/errkind"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/store"
)

// DefaultUniqueValuesTopN caps the terms aggregation when the caller
// doesn't specify one.
const DefaultUniqueValuesTopN = 10

// CompileUniqueValues builds a terms-aggregation query over one keyword
// field (§4.6), rejecting fields outside model.KeywordFields.
func CompileUniqueValues(req model.LogQueryRequest, field string, topN int) (store.UniqueValuesQuery, error) {
	if !model.KeywordFields[field] {
		return store.UniqueValuesQuery{}, errkind.New(errkind.Validation, fmt.Sprintf("field %q does not support unique-values aggregation", field))
	}
	if topN <= 0 {
		topN = DefaultUniqueValuesTopN
	}

	filter, err := Compile(req)
	if err != nil {
		return store.UniqueValuesQuery{}, err
	}
	return store.UniqueValuesQuery{Filter: filter, Field: field, TopN: topN}, nil
}

package query

import (
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/store"
)

// CompileCount builds a count-only query (§4.6 "count: same filters,
// track totals"). Page/size are carried through but ignored by Store.Count.
func CompileCount(req model.LogQueryRequest) (store.CompiledQuery, error) {
	return Compile(req)
}

package query

import (
	"fmt"

	"github.com/dalibo/logforge/internal/errkind"
	"github.com/dalibo/logforge/internal/model"
	"github.com/dalibo/logforge/internal/store"
)

// DefaultTimelineInterval is used when the caller doesn't specify one.
const DefaultTimelineInterval = "1h"

// CompileTimeline builds a date-histogram query over "timestamp" (§4.6):
// one of the documented intervals, plus the same filter set as a search.
func CompileTimeline(req model.LogQueryRequest, interval string) (store.TimelineQuery, error) {
	if interval == "" {
		interval = DefaultTimelineInterval
	}
	if !model.ValidTimelineIntervals[interval] {
		return store.TimelineQuery{}, errkind.New(errkind.Validation, fmt.Sprintf("interval %q is not supported", interval))
	}

	filter, err := Compile(req)
	if err != nil {
		return store.TimelineQuery{}, err
	}
	return store.TimelineQuery{Filter: filter, Interval: interval}, nil
}

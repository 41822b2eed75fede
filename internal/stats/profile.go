package stats

import (
	"io"
	"time"

	"github.com/google/pprof/profile"

	pkgerrors "github.com/pkg/errors"
)

// Profile dumps a pprof-format profile of per-pass time spent in the
// rewrite loop, built on github.com/google/pprof/profile's wire struct.
// Each PassRecord becomes one sample, its location named after the pass
// id, its value the elapsed nanoseconds and the node-count delta.
func Profile(records []PassRecord, w io.Writer) error {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "elapsed", Unit: "nanoseconds"},
			{Type: "nodes_removed", Unit: "count"},
		},
		TimeNanos:     1,
		DurationNanos: totalElapsed(records).Nanoseconds(),
	}

	funcByName := map[string]*profile.Function{}
	locByName := map[string]*profile.Location{}
	var nextID uint64 = 1

	for _, r := range records {
		fn, ok := funcByName[r.PassID]
		if !ok {
			fn = &profile.Function{ID: nextID, Name: r.PassID}
			nextID++
			funcByName[r.PassID] = fn
			p.Function = append(p.Function, fn)
		}
		loc, ok := locByName[r.PassID]
		if !ok {
			loc = &profile.Location{
				ID:   nextID,
				Line: []profile.Line{{Function: fn}},
			}
			nextID++
			locByName[r.PassID] = loc
			p.Location = append(p.Location, loc)
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{r.Elapsed.Nanoseconds(), int64(r.NodesRemoved())},
		})
	}

	if err := p.CheckValid(); err != nil {
		return pkgerrors.Wrap(err, "stats: building pprof profile")
	}
	return p.Write(w)
}

func totalElapsed(records []PassRecord) time.Duration {
	var total time.Duration
	for _, r := range records {
		total += r.Elapsed
	}
	return total
}


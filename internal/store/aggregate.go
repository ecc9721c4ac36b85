package store

import (
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
)

// Stat is the aggregate of one metric across all peers that reported it.
// Peers whose value is unknown are not counted.
type Stat struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64

	// Percentiles are approximate, within the sketch's relative accuracy.
	// Zero when percentiles were not requested.
	P50 float64
	P90 float64
}

// OK reports whether at least one peer contributed a value.
func (s Stat) OK() bool {
	return s.Count > 0
}

// fieldAggregate maintains running statistics for one metric.
// It supports optional percentile calculation using DDSketch.
type fieldAggregate struct {
	count int
	sum   float64
	min   float64
	max   float64

	// DDSketch for percentiles (nil if disabled)
	sketch *ddsketch.DDSketch
}

func newFieldAggregate(accuracy float64) *fieldAggregate {
	agg := &fieldAggregate{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}

	if accuracy > 0 {
		sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
		if err == nil {
			agg.sketch = sketch
		}
	}

	return agg
}

// Add adds a metric to the aggregate. Unknown metrics are skipped.
func (a *fieldAggregate) Add(m Metric) {
	if !m.Known {
		return
	}

	a.count++
	a.sum += m.Value

	if m.Value < a.min {
		a.min = m.Value
	}
	if m.Value > a.max {
		a.max = m.Value
	}

	if a.sketch != nil {
		a.sketch.Add(m.Value)
	}
}

// Result returns the aggregation result.
func (a *fieldAggregate) Result() Stat {
	if a.count == 0 {
		return Stat{}
	}

	stat := Stat{
		Count: a.count,
		Mean:  a.sum / float64(a.count),
		Min:   a.min,
		Max:   a.max,
	}

	if a.sketch != nil {
		stat.P50, _ = a.sketch.GetValueAtQuantile(0.50)
		stat.P90, _ = a.sketch.GetValueAtQuantile(0.90)
	}

	return stat
}

// Summary aggregates every metric over the peers in the store.
type Summary struct {
	Peers        int
	FreeDiskGB   Stat
	CPUCount     Stat
	FreeMemoryGB Stat
}

func summarize(records map[string]Record, accuracy float64) Summary {
	disk := newFieldAggregate(accuracy)
	cpu := newFieldAggregate(accuracy)
	mem := newFieldAggregate(accuracy)

	for _, rec := range records {
		disk.Add(rec.FreeDiskGB)
		cpu.Add(rec.CPUCount)
		mem.Add(rec.FreeMemoryGB)
	}

	return Summary{
		Peers:        len(records),
		FreeDiskGB:   disk.Result(),
		CPUCount:     cpu.Result(),
		FreeMemoryGB: mem.Result(),
	}
}

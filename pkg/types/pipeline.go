package types

// Pipeline is an ordered sequence of tables. Values flow through the tables
// in order; the output of one is the input of the next.
type Pipeline struct {
	tables []Table
}

// NewPipeline builds a pipeline from already validated tables.
func NewPipeline(tables ...Table) Pipeline {
	return Pipeline{tables: append([]Table(nil), tables...)}
}

// Tables returns the pipeline's tables in order.
func (p Pipeline) Tables() []Table {
	return append([]Table(nil), p.tables...)
}

// Len returns the number of tables.
func (p Pipeline) Len() int {
	return len(p.tables)
}

// Lookup folds a single value through every table.
func (p Pipeline) Lookup(v uint64) uint64 {
	for _, t := range p.tables {
		v = t.Lookup(v)
	}
	return v
}

// Resolve folds a set of intervals through every table.
func (p Pipeline) Resolve(intervals []Interval) []Interval {
	out := append([]Interval(nil), intervals...)
	for _, t := range p.tables {
		out = t.Resolve(out)
	}
	return out
}

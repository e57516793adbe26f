package types

// Split is the outcome of cutting one interval against one rule.
//
// Resolved is the covered part in destination coordinates, nil when the
// interval misses the rule. Unresolved holds zero, one or two leftover parts
// in source coordinates, lowest first.
type Split struct {
	Resolved   *Interval
	Unresolved []Interval
}

// Split cuts iv against the rule's source domain.
//
//	a..b  x..y   disjoint          -> unresolved [a,b]
//	a..x..b..y   left overhang     -> resolved [x,b]', unresolved [a,x-1]
//	a..x..y..b   straddles         -> resolved [x,y]', unresolved [a,x-1] [y+1,b]
//	x..a..b..y   inside            -> resolved [a,b]'
//	x..a..y..b   right overhang    -> resolved [a,y]', unresolved [y+1,b]
//
// The resolved part mapped back to source coordinates plus the unresolved
// parts reconstruct iv exactly. It panics with *InvariantError if iv is not
// well formed.
func (r Rule) Split(iv Interval) Split {
	mustValid("split", iv)

	lo, hi := iv.Low, iv.High
	src := r.SourceInterval()
	ruleLo, ruleHi := src.Low, src.High

	if hi < ruleLo || lo > ruleHi {
		return Split{Unresolved: []Interval{iv}}
	}

	if lo < ruleLo {
		before := Interval{Low: lo, High: ruleLo - 1}
		if hi <= ruleHi {
			return Split{
				Resolved:   &Interval{Low: r.DestStart, High: r.translate(hi)},
				Unresolved: []Interval{before},
			}
		}
		return Split{
			Resolved:   &Interval{Low: r.DestStart, High: r.DestEnd()},
			Unresolved: []Interval{before, {Low: ruleHi + 1, High: hi}},
		}
	}

	if hi <= ruleHi {
		return Split{Resolved: &Interval{Low: r.translate(lo), High: r.translate(hi)}}
	}
	return Split{
		Resolved:   &Interval{Low: r.translate(lo), High: r.DestEnd()},
		Unresolved: []Interval{{Low: ruleHi + 1, High: hi}},
	}
}

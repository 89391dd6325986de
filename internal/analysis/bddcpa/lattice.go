package bddcpa

// Join returns the least state above s1 and s2 the domain can express.
// When s1 already lies below s2, s2 itself is returned: drivers detect
// fixpoints through pointer identity.
func (e *Engine) Join(s1, s2 *State) *State {
	defer e.stats.Join.Start()()
	e.stats.Joins.Add(1)

	d := s1.diagram.Or(s2.diagram)
	if d.Equal(s2.diagram) && e.blockLessOrEqual(s1, s2) {
		return s2
	}
	// pending assumptions of either side are dropped, which only widens
	return e.newState(d, ConditionBlock{})
}

// IsLessOrEqual reports whether s1 is covered by s2. The block part is
// checked syntactically, so the answer may be false for states that are
// semantically covered.
func (e *Engine) IsLessOrEqual(s1, s2 *State) bool {
	defer e.stats.Stop.Start()()
	e.stats.StopChecks.Add(1)

	if !s1.diagram.Implies(s2.diagram) {
		return false
	}
	return e.blockLessOrEqual(s1, s2)
}

func (e *Engine) blockLessOrEqual(s1, s2 *State) bool {
	return s2.block.IsEmpty() || s1.block.SubsumedBy(s2.block) || s2.MergedFrom(s1)
}

// Merge combines s1 into s2 when the result stays precise enough, and
// returns s2 unchanged otherwise. s2 is also returned when it already covers
// s1, so that drivers see no progress where none was made.
func (e *Engine) Merge(s1, s2 *State) *State {
	defer e.stats.Merge.Start()()

	if s1.block.Equal(s2.block) {
		d := s1.diagram.Or(s2.diagram)
		if d.Equal(s2.diagram) {
			return s2
		}
		e.stats.Merges.Add(1)
		out := e.newState(d, s2.block)
		out.merged = mergedSet(nil, s1, s2)
		return out
	}

	if e.cfg.Merge == MergeAlways && s1.diagram.Equal(s2.diagram) {
		if e.blockLessOrEqual(s1, s2) {
			return s2
		}
		out := s1.clone()
		out.disjunctConditionBlocks(s2.block)
		if out.block.Equal(s2.block) {
			return s2
		}
		out.merged = mergedSet([]*State{s1, s2}, s1, s2)
		e.stats.Merges.Add(1)
		return out
	}
	return s2
}

// mergedSet returns direct together with every state already folded into
// one of from, or nil when that is empty.
func mergedSet(direct []*State, from ...*State) map[*State]struct{} {
	n := len(direct)
	for _, s := range from {
		n += len(s.merged)
	}
	if n == 0 {
		return nil
	}
	out := make(map[*State]struct{}, n)
	for _, s := range direct {
		out[s] = struct{}{}
	}
	for _, s := range from {
		for m := range s.merged {
			out[m] = struct{}{}
		}
	}
	return out
}

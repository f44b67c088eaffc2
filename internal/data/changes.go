package data

// SecurityChanges records the securities added to and removed from the
// feed within one frontier window. The two sets are disjoint: adding a
// security that was removed in the same window cancels the removal.
type SecurityChanges struct {
	Added   []*Security
	Removed []*Security
}

// NoChanges is the empty (identity) value.
var NoChanges = SecurityChanges{}

// Count returns the total number of changed securities.
func (c SecurityChanges) Count() int {
	return len(c.Added) + len(c.Removed)
}

// MergeAdded folds an addition into the window. A pending removal of the
// same security is cancelled and the addition replaces it.
func (c SecurityChanges) MergeAdded(s *Security) SecurityChanges {
	out := SecurityChanges{Removed: removeSecurity(c.Removed, s.Symbol)}
	out.Added = append(removeSecurity(c.Added, s.Symbol), s)
	return out
}

// MergeRemoved folds a removal into the window. A pending addition of the
// same security is dropped rather than reported as both added and removed.
func (c SecurityChanges) MergeRemoved(s *Security) SecurityChanges {
	out := SecurityChanges{Added: removeSecurity(c.Added, s.Symbol)}
	out.Removed = append(removeSecurity(c.Removed, s.Symbol), s)
	return out
}

func removeSecurity(list []*Security, symbol Symbol) []*Security {
	out := make([]*Security, 0, len(list))
	for _, s := range list {
		if s.Symbol != symbol {
			out = append(out, s)
		}
	}
	return out
}

package data

import "testing"

func security(symbol string) *Security {
	return &Security{Symbol: Symbol(symbol), Type: SecurityTypeEquity}
}

func contains(list []*Security, symbol Symbol) bool {
	for _, s := range list {
		if s.Symbol == symbol {
			return true
		}
	}
	return false
}

func TestSecurityChangesDisjointSets(t *testing.T) {
	changes := NoChanges.
		MergeAdded(security("SPY")).
		MergeRemoved(security("QQQ"))

	if !contains(changes.Added, "SPY") || len(changes.Added) != 1 {
		t.Errorf("added: %v", changes.Added)
	}
	if !contains(changes.Removed, "QQQ") || len(changes.Removed) != 1 {
		t.Errorf("removed: %v", changes.Removed)
	}
	if changes.Count() != 2 {
		t.Errorf("count: got %d, want 2", changes.Count())
	}
}

func TestSecurityChangesAddCancelsRemoval(t *testing.T) {
	// Remove then re-add within one window: the add replaces the removal.
	changes := NoChanges.
		MergeRemoved(security("SPY")).
		MergeAdded(security("SPY"))

	if contains(changes.Removed, "SPY") {
		t.Error("removal survived a subsequent add of the same security")
	}
	if !contains(changes.Added, "SPY") {
		t.Error("add missing after cancelling the removal")
	}
	if changes.Count() != 1 {
		t.Errorf("count: got %d, want 1", changes.Count())
	}
}

func TestSecurityChangesRemoveDropsPendingAdd(t *testing.T) {
	changes := NoChanges.
		MergeAdded(security("SPY")).
		MergeRemoved(security("SPY"))

	if contains(changes.Added, "SPY") {
		t.Error("add survived a subsequent removal of the same security")
	}
	if !contains(changes.Removed, "SPY") {
		t.Error("removal missing")
	}
}

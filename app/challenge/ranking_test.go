package challenge

import (
	"testing"
)

func TestRank_StableTieBreak(t *testing.T) {
	standings := []Standing{
		{Name: "a", CountedPosts: 5},
		{Name: "b", CountedPosts: 5},
		{Name: "c", CountedPosts: 3},
	}

	ranked := Rank(standings)

	if len(ranked) != 3 {
		t.Fatalf("Expected 3 standings, got %d", len(ranked))
	}

	// Equal totals keep input order and still get distinct ranks.
	expected := []struct {
		name string
		rank int
	}{
		{"a", 1},
		{"b", 2},
		{"c", 3},
	}
	for i, want := range expected {
		if ranked[i].Name != want.name {
			t.Errorf("Position %d: expected %s, got %s", i, want.name, ranked[i].Name)
		}
		if ranked[i].Rank != want.rank {
			t.Errorf("Position %d: expected rank %d, got %d", i, want.rank, ranked[i].Rank)
		}
	}
}

func TestRank_DescendingByCountedPosts(t *testing.T) {
	standings := []Standing{
		{Name: "low", CountedPosts: 1},
		{Name: "high", CountedPosts: 9},
		{Name: "mid", CountedPosts: 4},
	}

	ranked := Rank(standings)

	order := []string{"high", "mid", "low"}
	for i, name := range order {
		if ranked[i].Name != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, ranked[i].Name)
		}
		if ranked[i].Rank != i+1 {
			t.Errorf("Position %d: expected rank %d, got %d", i, i+1, ranked[i].Rank)
		}
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	standings := []Standing{
		{Name: "a", CountedPosts: 1},
		{Name: "b", CountedPosts: 2},
	}

	Rank(standings)

	if standings[0].Name != "a" || standings[1].Name != "b" {
		t.Error("Rank should not reorder its input slice")
	}
	if standings[0].Rank != 0 || standings[1].Rank != 0 {
		t.Error("Rank should not assign ranks on the input slice")
	}
}

func TestRank_Empty(t *testing.T) {
	ranked := Rank(nil)
	if len(ranked) != 0 {
		t.Errorf("Expected empty result, got %d entries", len(ranked))
	}
}

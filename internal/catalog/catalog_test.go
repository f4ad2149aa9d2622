package catalog

import "testing"

func TestGroups_LayoutShape(t *testing.T) {
	if got := Widest(); got != 9 {
		t.Fatalf("widest group: got %d want 9", got)
	}
	if got := len(GroupsOf(CategoryCompound)); got != 5 {
		t.Fatalf("compound tiers: got %d want 5", got)
	}
	if got := len(GroupsOf(CategoryLabBase)); got != 6 {
		t.Fatalf("lab tiers: got %d want 6", got)
	}
	for i, g := range GroupsOf(CategoryLabBase) {
		if g.Tier != i {
			t.Fatalf("lab group %d has tier %d", i, g.Tier)
		}
	}
}

func TestEntries_UniqueExceptGhodium(t *testing.T) {
	seen := map[string]int{}
	for _, e := range Entries() {
		seen[e.ID]++
	}
	for id, n := range seen {
		if n > 1 && id != "G" {
			t.Fatalf("identifier %q declared %d times", id, n)
		}
	}
	if seen["G"] != 2 {
		t.Fatalf("G should appear in base and lab rows, got %d", seen["G"])
	}
}

func TestLookup(t *testing.T) {
	e, ok := Lookup("G")
	if !ok || e.Category != CategoryBase || e.Index != 8 {
		t.Fatalf("Lookup(G) = %+v ok=%v", e, ok)
	}
	e, ok = Lookup("XGHO2")
	if !ok || e.Category != CategoryLabBase || e.Tier != 5 || e.Index != 5 {
		t.Fatalf("Lookup(XGHO2) = %+v ok=%v", e, ok)
	}
	if _, ok := Lookup("unobtainium"); ok {
		t.Fatalf("unknown identifier should not resolve")
	}
}

func TestPalette_CoverageAndCopy(t *testing.T) {
	pal := Palette()
	for _, e := range Entries() {
		if _, ok := pal[e.ID]; !ok {
			t.Fatalf("palette missing %q", e.ID)
		}
	}
	pal["energy"] = "#000"
	if Palette()["energy"] == "#000" {
		t.Fatalf("Palette must return a copy")
	}
}

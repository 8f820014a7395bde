package catalog

import "testing"

func TestCategoriesOrder(t *testing.T) {
	keys := Categories()
	want := []CategoryKey{CategoryGeneral, CategorySpecialized, CategoryWomen, CategoryCancer}
	if len(keys) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(keys))
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("expected category %q at position %d, got %q", k, i, keys[i])
		}
	}
}

func TestLookup(t *testing.T) {
	pkg, err := Lookup(CategoryGeneral, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pkg.Title != "General checkup - after puberty" || !pkg.Popular {
		t.Errorf("unexpected package: %+v", pkg)
	}

	if _, err := Lookup(CategoryGeneral, 5); err == nil {
		t.Error("expected out-of-range index to fail")
	}
	if _, err := Lookup("unknown", 0); err == nil {
		t.Error("expected unknown category to fail")
	}
}

func TestRef(t *testing.T) {
	ref, err := Ref(CategoryWomen, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Category != "women" || ref.Index != 1 || ref.Title != "Polycystic ovary panel (PCOS)" {
		t.Errorf("unexpected ref: %+v", ref)
	}
}

package prefilter

import "testing"

func TestSmallDispatch(t *testing.T) {
	b := NewBuilder()
	b.Add([]byte("red"), 1)
	b.Add([]byte("green"), 2)
	b.Add([]byte("blue"), 3)

	d, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for key, want := range map[string]uint32{"red": 1, "green": 2, "blue": 3} {
		got, ok := d.Lookup([]byte(key))
		if !ok || got != want {
			t.Errorf("Lookup(%q) = (%d, %v), want (%d, true)", key, got, ok, want)
		}
	}
	if _, ok := d.Lookup([]byte("purple")); ok {
		t.Error("Lookup(purple) should not match any registered key")
	}
}

func TestLargeDispatchUsesAutomaton(t *testing.T) {
	b := NewBuilder()
	keys := []string{
		"alpha", "bravo", "charlie", "delta", "echo",
		"foxtrot", "golf", "hotel", "india",
	}
	for i, k := range keys {
		b.Add([]byte(k), uint32(i+1))
	}
	d, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if d.small != nil {
		t.Fatal("expected automaton-backed dispatcher above the small threshold")
	}
	for i, k := range keys {
		got, ok := d.Lookup([]byte(k))
		if !ok || got != uint32(i+1) {
			t.Errorf("Lookup(%q) = (%d, %v), want (%d, true)", k, got, ok, i+1)
		}
	}
	if _, ok := d.Lookup([]byte("zulu")); ok {
		t.Error("Lookup(zulu) should not match any registered key")
	}
	// A key that only partially overlaps a registered one must not match.
	if _, ok := d.Lookup([]byte("alphabet")); ok {
		t.Error("Lookup(alphabet) should not exact-match the shorter key 'alpha'")
	}
}

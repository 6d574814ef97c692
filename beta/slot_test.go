package beta

import (
	"testing"

	"github.com/coregx/rete/match"
)

func symbolBind(pm *match.PartialMatch) []byte {
	return []byte(pm.Binds[0].Value.(string))
}

func TestBytesEqualTestComparesBoundSymbols(t *testing.T) {
	test := BytesEqualTest(symbolBind, symbolBind)

	store := match.NewStore()
	left := store.Get(store.NewPartialMatch(1))
	left.Binds[0].Value = "red"
	right := store.Get(store.NewPartialMatch(1))
	right.Binds[0].Value = "red"

	ok, err := test(nil, left, right)
	if err != nil || !ok {
		t.Fatalf("test(red, red) = %v, %v, want true, nil", ok, err)
	}

	right.Binds[0].Value = "blue"
	ok, err = test(nil, left, right)
	if err != nil || ok {
		t.Fatalf("test(red, blue) = %v, %v, want false, nil", ok, err)
	}
}

func TestBytesEqualTestNilSidesNeverMatch(t *testing.T) {
	test := BytesEqualTest(symbolBind, symbolBind)
	ok, err := test(nil, nil, nil)
	if err != nil || ok {
		t.Fatalf("test(nil, nil) = %v, %v, want false, nil", ok, err)
	}
}

func TestBytesHashMatchesForEqualSymbols(t *testing.T) {
	hash := BytesHash(symbolBind)

	store := match.NewStore()
	a := store.Get(store.NewPartialMatch(1))
	a.Binds[0].Value = "red"
	b := store.Get(store.NewPartialMatch(1))
	b.Binds[0].Value = "red"
	c := store.Get(store.NewPartialMatch(1))
	c.Binds[0].Value = "blue"

	if hash(nil, a) != hash(nil, b) {
		t.Fatal("equal symbols hashed differently")
	}
	if hash(nil, a) == hash(nil, c) {
		t.Fatal("distinct symbols collided")
	}
}

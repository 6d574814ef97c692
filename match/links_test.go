package match

import "testing"

func TestLinkRightChildOrderAndUnlink(t *testing.T) {
	s := NewStore()
	parent := s.NewPartialMatch(1)
	c1 := s.NewPartialMatch(2)
	c2 := s.NewPartialMatch(2)

	LinkRightChild(s, parent, c1)
	LinkRightChild(s, parent, c2)

	if s.Get(parent).Children != c2 {
		t.Fatalf("Children head = %v, want most recently linked %v", s.Get(parent).Children, c2)
	}
	if s.Get(c2).NextRightChild != c1 {
		t.Fatalf("c2.NextRightChild = %v, want %v", s.Get(c2).NextRightChild, c1)
	}

	UnlinkRightChild(s, c2)
	if s.Get(parent).Children != c1 {
		t.Fatalf("Children head after unlinking c2 = %v, want %v", s.Get(parent).Children, c1)
	}
	if s.Get(c1).PrevRightChild != InvalidPMID {
		t.Fatal("c1 should now be the head with no prev sibling")
	}

	UnlinkRightChild(s, c1)
	if s.Get(parent).Children != InvalidPMID {
		t.Fatal("Children should be empty after unlinking all")
	}
}

func TestLinkLeftChildOrderAndUnlink(t *testing.T) {
	s := NewStore()
	parent := s.NewPartialMatch(1)
	c1 := s.NewPartialMatch(2)
	c2 := s.NewPartialMatch(2)

	LinkLeftChild(s, parent, c1)
	LinkLeftChild(s, parent, c2)

	if s.Get(parent).Children != c2 {
		t.Fatalf("Children head = %v, want %v", s.Get(parent).Children, c2)
	}

	UnlinkLeftChild(s, c2)
	UnlinkLeftChild(s, c1)
	if s.Get(parent).Children != InvalidPMID {
		t.Fatal("Children should be empty after unlinking all")
	}
}

func TestUnlinkWithNoParentIsNoop(t *testing.T) {
	s := NewStore()
	orphan := s.NewPartialMatch(1)
	UnlinkRightChild(s, orphan) // must not panic
	UnlinkLeftChild(s, orphan)
}

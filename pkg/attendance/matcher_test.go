package attendance

import (
	"testing"

	"github.com/facemark/facemark/pkg/enroll"
	"github.com/facemark/facemark/pkg/recognition"
)

func descriptorWith(first float32) recognition.Descriptor {
	var d recognition.Descriptor
	d[0] = first
	return d
}

func testGallery() []enroll.Identity {
	return []enroll.Identity{
		{Name: "alice", Descriptor: descriptorWith(1)},
		{Name: "bob", Descriptor: descriptorWith(5)},
		{Name: "carol", Descriptor: descriptorWith(10)},
	}
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(testGallery(), 0.5)

	tests := []struct {
		name     string
		probe    recognition.Descriptor
		wantName string
		wantOK   bool
	}{
		{name: "exact alice", probe: descriptorWith(1), wantName: "alice", wantOK: true},
		{name: "near bob", probe: descriptorWith(5.2), wantName: "bob", wantOK: true},
		{name: "between identities", probe: descriptorWith(3), wantName: "", wantOK: false},
		{name: "far from everyone", probe: descriptorWith(100), wantName: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := m.Match(tt.probe)
			if ok != tt.wantOK {
				t.Fatalf("Match ok = %v, want %v (distance %.4f)", ok, tt.wantOK, match.Distance)
			}
			if ok && match.Name != tt.wantName {
				t.Errorf("Match name = %q, want %q", match.Name, tt.wantName)
			}
		})
	}
}

func TestMatcher_EmptyGallery(t *testing.T) {
	m := NewMatcher(nil, 0.5)

	match, ok := m.Match(descriptorWith(1))
	if ok {
		t.Error("empty gallery must never match")
	}
	if match.Index != -1 {
		t.Errorf("expected index -1, got %d", match.Index)
	}
	if m.Size() != 0 {
		t.Errorf("expected size 0, got %d", m.Size())
	}
}

func TestMatcher_PicksNearest(t *testing.T) {
	// Both alice and bob are within threshold; the nearer one wins.
	gallery := []enroll.Identity{
		{Name: "alice", Descriptor: descriptorWith(1.0)},
		{Name: "bob", Descriptor: descriptorWith(1.3)},
	}
	m := NewMatcher(gallery, 1.0)

	match, ok := m.Match(descriptorWith(1.25))
	if !ok {
		t.Fatal("expected a match")
	}
	if match.Name != "bob" {
		t.Errorf("expected the nearer identity bob, got %q", match.Name)
	}
}

// Package attendance implements the matching loop: nearest-neighbor
// identity matching against the enrolled gallery and append-only
// journaling of first sightings.
package attendance

import (
	"github.com/facemark/facemark/pkg/enroll"
	"github.com/facemark/facemark/pkg/recognition"
)

// Match is the result of matching one face against the gallery.
type Match struct {
	Name     string
	Index    int
	Distance float64
}

// Matcher matches face descriptors against an enrolled gallery.
// The gallery is immutable after construction.
type Matcher struct {
	gallery     []enroll.Identity
	descriptors []recognition.Descriptor
	threshold   float64
}

// NewMatcher creates a matcher over the given gallery. A descriptor
// matches an identity when its Euclidean distance is below threshold.
func NewMatcher(gallery []enroll.Identity, threshold float64) *Matcher {
	return &Matcher{
		gallery:     gallery,
		descriptors: enroll.Descriptors(gallery),
		threshold:   threshold,
	}
}

// Match finds the nearest enrolled identity for the descriptor.
// The second return value is false when the nearest identity is still
// farther than the threshold (an unknown face), or the gallery is empty.
func (m *Matcher) Match(d recognition.Descriptor) (Match, bool) {
	idx, dist, ok := recognition.FindBestMatch(d, m.descriptors, m.threshold)
	if idx < 0 {
		return Match{Index: -1, Distance: dist}, false
	}
	return Match{
		Name:     m.gallery[idx].Name,
		Index:    idx,
		Distance: dist,
	}, ok
}

// Size returns the number of enrolled identities.
func (m *Matcher) Size() int {
	return len(m.gallery)
}

// Threshold returns the configured match threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

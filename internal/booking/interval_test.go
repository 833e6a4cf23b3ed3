package booking

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func iv(h1, m1, h2, m2 int) Interval {
	return Interval{Start: at(h1, m1), End: at(h2, m2)}
}

func TestIntervalValidate(t *testing.T) {
	assert.NoError(t, iv(10, 0, 11, 0).Validate())
	assert.ErrorIs(t, iv(10, 0, 10, 0).Validate(), ErrInvalidTimeRange)
	assert.ErrorIs(t, iv(11, 0, 10, 0).Validate(), ErrInvalidTimeRange)
}

func TestIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"touching end to start", iv(10, 0, 11, 0), iv(11, 0, 12, 0), false},
		{"touching start to end", iv(11, 0, 12, 0), iv(10, 0, 11, 0), false},
		{"one minute overlap", iv(10, 0, 11, 0), iv(10, 59, 12, 0), true},
		{"partial overlap", iv(10, 0, 11, 0), iv(10, 30, 11, 30), true},
		{"containment", iv(9, 0, 12, 0), iv(10, 0, 11, 0), true},
		{"contained", iv(10, 0, 11, 0), iv(9, 0, 12, 0), true},
		{"identical", iv(10, 0, 11, 0), iv(10, 0, 11, 0), true},
		{"disjoint", iv(8, 0, 9, 0), iv(10, 0, 11, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

// Any interval shares an instant with another iff one contains a point of the other.
func TestIntervalOverlapMatchesPointwiseDefinition(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a := randomInterval(rng)
		b := randomInterval(rng)

		pointwise := false
		for m := 0; m < 24*60; m++ {
			p := at(0, 0).Add(time.Duration(m) * time.Minute)
			if a.Contains(p) && b.Contains(p) {
				pointwise = true
				break
			}
		}
		assert.Equal(t, pointwise, a.Overlaps(b), "a=%v b=%v", a, b)
	}
}

func TestIntervalContainsHalfOpen(t *testing.T) {
	i := iv(10, 0, 11, 0)
	assert.True(t, i.Contains(at(10, 0)))
	assert.True(t, i.Contains(at(10, 59)))
	assert.False(t, i.Contains(at(11, 0)))
	assert.False(t, i.Contains(at(9, 59)))
	assert.Equal(t, time.Hour, i.Duration())
}

func randomInterval(rng *rand.Rand) Interval {
	start := rng.Intn(24*60 - 1)
	length := 1 + rng.Intn(180)
	if start+length > 24*60 {
		length = 24*60 - start
	}
	s := at(0, 0).Add(time.Duration(start) * time.Minute)
	return Interval{Start: s, End: s.Add(time.Duration(length) * time.Minute)}
}

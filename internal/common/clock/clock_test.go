package clock

import (
	"testing"
	"time"
)

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	c.Advance(time.Hour)
	if got := c.Since(start); got != time.Hour {
		t.Errorf("expected 1h since start, got %v", got)
	}

	later := start.Add(48 * time.Hour)
	c.SetTime(later)
	if !c.Now().Equal(later) {
		t.Errorf("expected %v, got %v", later, c.Now())
	}
}

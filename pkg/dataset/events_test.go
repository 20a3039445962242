package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventManagerFire(t *testing.T) {
	tests := []struct {
		name     string
		returns  []bool
		wantOK   bool
		wantRuns int
	}{
		{name: "no listeners", returns: nil, wantOK: true, wantRuns: 0},
		{name: "all accept", returns: []bool{true, true}, wantOK: true, wantRuns: 2},
		{name: "one vetoes", returns: []bool{true, false, true}, wantOK: false, wantRuns: 3},
		{name: "all veto", returns: []bool{false, false}, wantOK: false, wantRuns: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewEventManager()
			runs := 0
			for _, ret := range tt.returns {
				ret := ret
				m.AddEventListener(EventQuery, func(e *Event) bool {
					runs++
					return ret
				})
			}

			ok := m.fire(&Event{Name: EventQuery})

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRuns, runs, "a veto must not stop later listeners")
		})
	}
}

func TestEventManagerRemoveListeners(t *testing.T) {
	m := NewEventManager()
	fired := false
	m.AddEventListener(EventLoad, func(e *Event) bool {
		fired = true
		return true
	})

	m.RemoveEventListeners(EventLoad)
	m.fire(&Event{Name: EventLoad})

	assert.False(t, fired)
}

package calsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LAVINDI111/acnsms/core"
)

func TestDummyService(t *testing.T) {
	svc := NewDummyService()
	ctx := context.Background()

	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	id, err := svc.CreateEvent(ctx, core.CalendarEvent{
		Title:    "CS101 - Data Structures",
		Location: "A1",
		Start:    start,
		End:      start.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	t.Run("partial update leaves other fields untouched", func(t *testing.T) {
		newStart := start.AddDate(0, 0, 2)
		err := svc.UpdateEvent(ctx, id, core.CalendarEventChanges{
			Location: core.StringPtr("B2"),
			Start:    core.TimePtr(newStart),
		})
		require.NoError(t, err)

		ev, ok := svc.Event(id)
		require.True(t, ok)
		assert.Equal(t, "B2", ev.Location)
		assert.Equal(t, newStart, ev.Start)
		assert.Equal(t, "CS101 - Data Structures", ev.Title)
		assert.Equal(t, start.Add(2*time.Hour), ev.End, "end not in changes, must not move")
	})

	t.Run("update unknown event", func(t *testing.T) {
		err := svc.UpdateEvent(ctx, "nope", core.CalendarEventChanges{Location: core.StringPtr("C3")})
		assert.Error(t, err)
	})

	t.Run("list filters by window", func(t *testing.T) {
		events, err := svc.ListEvents(ctx, start, start.AddDate(0, 0, 7), 10)
		require.NoError(t, err)
		assert.Len(t, events, 1)

		events, err = svc.ListEvents(ctx, start.AddDate(0, 1, 0), start.AddDate(0, 2, 0), 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteEvent(ctx, id))
		_, ok := svc.Event(id)
		assert.False(t, ok)
		assert.Error(t, svc.DeleteEvent(ctx, id))
	})
}

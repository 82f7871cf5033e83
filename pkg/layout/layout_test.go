package layout

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

type testEvent struct {
	id    string
	start time.Time
	end   time.Time
}

func (e testEvent) LayoutKey() string      { return e.id }
func (e testEvent) LayoutStart() time.Time { return e.start }
func (e testEvent) LayoutEnd() time.Time   { return e.end }

var day = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

// at returns the time of the test day at hh:mm.
func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func ev(id string, startH, startM, endH, endM int) testEvent {
	return testEvent{id: id, start: at(startH, startM), end: at(endH, endM)}
}

func TestCalculateEventLayouts(t *testing.T) {
	testCases := []struct {
		name   string
		events []testEvent
		want   map[string]Info
	}{
		{
			name:   "Single event takes the full width",
			events: []testEvent{ev("a", 9, 0, 10, 0)},
			want: map[string]Info{
				"a": {WidthFraction: 1, OffsetFraction: 0, OverlapGroup: 0, BaseColumnIndex: 0, ColumnSpan: 1, TotalColumns: 1},
			},
		},
		{
			name: "Touching events do not overlap",
			events: []testEvent{
				ev("a", 9, 0, 10, 0),
				ev("b", 10, 0, 11, 0),
			},
			want: map[string]Info{
				"a": {WidthFraction: 1, OffsetFraction: 0, OverlapGroup: 0, BaseColumnIndex: 0, ColumnSpan: 1, TotalColumns: 1},
				"b": {WidthFraction: 1, OffsetFraction: 0, OverlapGroup: 1, BaseColumnIndex: 0, ColumnSpan: 1, TotalColumns: 1},
			},
		},
		{
			name: "Event nested inside another splits the width",
			events: []testEvent{
				ev("a", 9, 0, 10, 0),
				ev("b", 9, 30, 9, 45),
			},
			want: map[string]Info{
				"a": {WidthFraction: 0.5, OffsetFraction: 0, OverlapGroup: 0, BaseColumnIndex: 0, ColumnSpan: 1, TotalColumns: 2},
				"b": {WidthFraction: 0.5, OffsetFraction: 0.5, OverlapGroup: 0, BaseColumnIndex: 1, ColumnSpan: 1, TotalColumns: 2},
			},
		},
		{
			name: "Short event in the last column cannot grow past its own column",
			events: []testEvent{
				ev("a", 9, 0, 10, 0),
				ev("b", 9, 0, 9, 30),
			},
			want: map[string]Info{
				"a": {WidthFraction: 0.5, OffsetFraction: 0, OverlapGroup: 0, BaseColumnIndex: 0, ColumnSpan: 1, TotalColumns: 2},
				"b": {WidthFraction: 0.5, OffsetFraction: 0.5, OverlapGroup: 0, BaseColumnIndex: 1, ColumnSpan: 1, TotalColumns: 2},
			},
		},
		{
			name: "Three staggered events use three columns",
			events: []testEvent{
				ev("a", 9, 0, 11, 0),
				ev("b", 9, 30, 10, 30),
				ev("c", 10, 0, 10, 15),
			},
			want: map[string]Info{
				"a": {WidthFraction: 1.0 / 3, OffsetFraction: 0, OverlapGroup: 0, BaseColumnIndex: 0, ColumnSpan: 1, TotalColumns: 3},
				"b": {WidthFraction: 1.0 / 3, OffsetFraction: 1.0 / 3, OverlapGroup: 0, BaseColumnIndex: 1, ColumnSpan: 1, TotalColumns: 3},
				"c": {WidthFraction: 1.0 / 3, OffsetFraction: 2.0 / 3, OverlapGroup: 0, BaseColumnIndex: 2, ColumnSpan: 1, TotalColumns: 3},
			},
		},
		{
			name: "Event expands into a free neighbour column",
			events: []testEvent{
				ev("a", 9, 0, 12, 0),
				ev("b", 9, 0, 10, 0),
				ev("c", 9, 0, 10, 0),
				ev("d", 10, 0, 11, 0),
			},
			want: map[string]Info{
				"a": {WidthFraction: 1.0 / 3, OffsetFraction: 0, OverlapGroup: 0, BaseColumnIndex: 0, ColumnSpan: 1, TotalColumns: 3},
				"b": {WidthFraction: 1.0 / 3, OffsetFraction: 1.0 / 3, OverlapGroup: 0, BaseColumnIndex: 1, ColumnSpan: 1, TotalColumns: 3},
				"c": {WidthFraction: 1.0 / 3, OffsetFraction: 2.0 / 3, OverlapGroup: 0, BaseColumnIndex: 2, ColumnSpan: 1, TotalColumns: 3},
				"d": {WidthFraction: 2.0 / 3, OffsetFraction: 1.0 / 3, OverlapGroup: 0, BaseColumnIndex: 1, ColumnSpan: 2, TotalColumns: 3},
			},
		},
		{
			name: "Clusters are numbered in temporal order and laid out independently",
			events: []testEvent{
				ev("late", 14, 0, 15, 0),
				ev("x", 9, 0, 10, 0),
				ev("y", 9, 15, 9, 45),
			},
			want: map[string]Info{
				"x":    {WidthFraction: 0.5, OffsetFraction: 0, OverlapGroup: 0, BaseColumnIndex: 0, ColumnSpan: 1, TotalColumns: 2},
				"y":    {WidthFraction: 0.5, OffsetFraction: 0.5, OverlapGroup: 0, BaseColumnIndex: 1, ColumnSpan: 1, TotalColumns: 2},
				"late": {WidthFraction: 1, OffsetFraction: 0, OverlapGroup: 1, BaseColumnIndex: 0, ColumnSpan: 1, TotalColumns: 1},
			},
		},
		{
			name: "Equal start times are ordered by key",
			events: []testEvent{
				ev("b", 9, 0, 10, 0),
				ev("a", 9, 0, 10, 0),
			},
			want: map[string]Info{
				"a": {WidthFraction: 0.5, OffsetFraction: 0, OverlapGroup: 0, BaseColumnIndex: 0, ColumnSpan: 1, TotalColumns: 2},
				"b": {WidthFraction: 0.5, OffsetFraction: 0.5, OverlapGroup: 0, BaseColumnIndex: 1, ColumnSpan: 1, TotalColumns: 2},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			got, err := CalculateEventLayouts(tc.events)

			// then
			require.NoError(t, err)
			require.Len(t, got, len(tc.want))
			for key, want := range tc.want {
				assertInfo(t, want, got[key], key)
			}
		})
	}
}

func TestCalculateEventLayouts_EmptyInput(t *testing.T) {
	got, err := CalculateEventLayouts([]testEvent{})

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCalculateEventLayouts_Validation(t *testing.T) {
	t.Run("should reject an event ending before it starts", func(t *testing.T) {
		_, err := CalculateEventLayouts([]testEvent{ev("a", 10, 0, 9, 0)})

		require.ErrorIs(t, err, ErrInvalidInterval)
		assert.Contains(t, err.Error(), `"a"`)
	})

	t.Run("should reject a zero length event", func(t *testing.T) {
		_, err := CalculateEventLayouts([]testEvent{ev("a", 9, 0, 10, 0), ev("b", 9, 30, 9, 30)})

		require.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("should reject duplicate keys", func(t *testing.T) {
		_, err := CalculateEventLayouts([]testEvent{ev("a", 9, 0, 10, 0), ev("a", 11, 0, 12, 0)})

		require.ErrorIs(t, err, ErrDuplicateKey)
	})
}

func TestCalculateEventLayouts_Properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		events := randomEvents(rnd, 1+rnd.Intn(25))

		got, err := CalculateEventLayouts(events)
		require.NoError(t, err)
		require.Len(t, got, len(events), "round %d", round)

		for _, e := range events {
			info := got[e.id]
			total := float64(info.TotalColumns)
			assert.GreaterOrEqual(t, info.ColumnSpan, 1)
			assert.Greater(t, info.WidthFraction, 0.0)
			assert.LessOrEqual(t, info.WidthFraction, 1.0)
			assert.GreaterOrEqual(t, info.OffsetFraction, 0.0)
			assert.Less(t, info.OffsetFraction, 1.0)
			assert.LessOrEqual(t, info.OffsetFraction+info.WidthFraction, 1.0+epsilon)
			assert.InDelta(t, float64(info.ColumnSpan), info.WidthFraction*total, epsilon)
			assert.InDelta(t, float64(info.BaseColumnIndex), info.OffsetFraction*total, epsilon)
		}

		for i, a := range events {
			for _, b := range events[i+1:] {
				if !overlapping(a, b) {
					continue
				}
				la, lb := got[a.id], got[b.id]
				assert.Equal(t, la.OverlapGroup, lb.OverlapGroup, "overlapping %s and %s split across clusters", a.id, b.id)
				assert.False(t, columnsIntersect(la, lb), "overlapping %s and %s share a column", a.id, b.id)
			}
		}

		again, err := CalculateEventLayouts(events)
		require.NoError(t, err)
		assert.Equal(t, got, again)

		shuffled := append([]testEvent(nil), events...)
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		permuted, err := CalculateEventLayouts(shuffled)
		require.NoError(t, err)
		assert.Equal(t, got, permuted)
	}
}

func TestCalculateEventLayouts_MinimalColumns(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for round := 0; round < 100; round++ {
		events := randomEvents(rnd, 2+rnd.Intn(15))

		got, err := CalculateEventLayouts(events)
		require.NoError(t, err)

		groups, err := Clusters(events)
		require.NoError(t, err)
		byKey := make(map[string]testEvent, len(events))
		for _, e := range events {
			byKey[e.id] = e
		}
		for _, keys := range groups {
			members := make([]testEvent, 0, len(keys))
			for _, key := range keys {
				members = append(members, byKey[key])
			}
			assert.Equal(t, maxDepth(members), got[keys[0]].TotalColumns)
		}
	}
}

func TestClusters(t *testing.T) {
	t.Run("should return no clusters for empty input", func(t *testing.T) {
		groups, err := Clusters([]testEvent{})

		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("should chain transitively overlapping events", func(t *testing.T) {
		events := []testEvent{
			ev("c", 10, 30, 11, 30),
			ev("a", 9, 0, 10, 0),
			ev("b", 9, 45, 10, 45),
			ev("d", 11, 30, 12, 0),
		}

		groups, err := Clusters(events)

		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a", "b", "c"}, {"d"}}, groups)
	})

	t.Run("should keep a long event's cluster open past shorter ones", func(t *testing.T) {
		events := []testEvent{
			ev("long", 8, 0, 12, 0),
			ev("short", 8, 30, 9, 0),
			ev("later", 11, 0, 11, 30),
		}

		groups, err := Clusters(events)

		require.NoError(t, err)
		assert.Equal(t, [][]string{{"long", "short", "later"}}, groups)
	})
}

func assertInfo(t *testing.T, want, got Info, key string) {
	t.Helper()
	assert.InDelta(t, want.WidthFraction, got.WidthFraction, epsilon, "width of %s", key)
	assert.InDelta(t, want.OffsetFraction, got.OffsetFraction, epsilon, "offset of %s", key)
	assert.Equal(t, want.OverlapGroup, got.OverlapGroup, "overlap group of %s", key)
	assert.Equal(t, want.BaseColumnIndex, got.BaseColumnIndex, "base column of %s", key)
	assert.Equal(t, want.ColumnSpan, got.ColumnSpan, "column span of %s", key)
	assert.Equal(t, want.TotalColumns, got.TotalColumns, "total columns of %s", key)
}

// randomEvents builds events on a 15 minute grid between 08:00 and 18:00.
func randomEvents(rnd *rand.Rand, n int) []testEvent {
	events := make([]testEvent, 0, n)
	for i := 0; i < n; i++ {
		startSlot := rnd.Intn(40)
		length := 1 + rnd.Intn(8)
		start := at(8, 0).Add(time.Duration(startSlot) * 15 * time.Minute)
		events = append(events, testEvent{
			id:    fmt.Sprintf("event-%02d", i),
			start: start,
			end:   start.Add(time.Duration(length) * 15 * time.Minute),
		})
	}
	return events
}

func overlapping(a, b testEvent) bool {
	return a.start.Before(b.end) && a.end.After(b.start)
}

func columnsIntersect(a, b Info) bool {
	return a.BaseColumnIndex < b.BaseColumnIndex+b.ColumnSpan && b.BaseColumnIndex < a.BaseColumnIndex+a.ColumnSpan
}

// maxDepth is the largest number of events running at the same instant.
func maxDepth(events []testEvent) int {
	depth := 0
	for _, moment := range events {
		running := 0
		for _, e := range events {
			if !e.start.After(moment.start) && e.end.After(moment.start) {
				running++
			}
		}
		depth = max(depth, running)
	}
	return depth
}

package layout

import "time"

// cluster partitions intervals (sorted by start) into maximal groups of
// transitively overlapping events. Each group holds indexes into intervals.
func cluster(intervals []interval) [][]int {
	if len(intervals) == 0 {
		return nil
	}

	var groups [][]int
	current := []int{0}
	clusterEnd := intervals[0].end
	for i := 1; i < len(intervals); i++ {
		iv := intervals[i]
		if iv.start.Before(clusterEnd) {
			current = append(current, i)
			clusterEnd = latest(clusterEnd, iv.end)
			continue
		}
		groups = append(groups, current)
		current = []int{i}
		clusterEnd = iv.end
	}
	return append(groups, current)
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

package layout

import "time"

// assignColumns gives every member of a cluster the leftmost column whose
// previous occupant ends at or before the member starts, opening a new
// column when none is free. Members must be in start order.
// It returns the base column per interval index and the number of columns.
func assignColumns(intervals []interval, members []int) (map[int]int, int) {
	base := make(map[int]int, len(members))
	var columnLastEnd []time.Time
	for _, idx := range members {
		iv := intervals[idx]
		column := len(columnLastEnd)
		for c, lastEnd := range columnLastEnd {
			if !lastEnd.After(iv.start) {
				column = c
				break
			}
		}
		if column == len(columnLastEnd) {
			columnLastEnd = append(columnLastEnd, iv.end)
		} else {
			columnLastEnd[column] = iv.end
		}
		base[idx] = column
	}
	return base, len(columnLastEnd)
}

// rightBoundary returns the first column right of the event's base column
// that holds an overlapping cluster member, or total when every column to
// the right is free for the whole duration of the event.
func rightBoundary(intervals []interval, members []int, base map[int]int, idx int, total int) int {
	iv := intervals[idx]
	for c := base[idx] + 1; c < total; c++ {
		for _, other := range members {
			if other != idx && base[other] == c && iv.overlaps(intervals[other]) {
				return c
			}
		}
	}
	return total
}

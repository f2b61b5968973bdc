package route

import (
	"time"
)

// SolveTSP finds a single-vehicle open tour over the distance matrix,
// starting at depot. Construction is cheapest-arc (greedy nearest
// unvisited node) followed by 2-opt local search bounded by a
// wall-clock budget. Best effort, not exact; returns nil when the
// matrix is malformed so callers can fall back to input order.
func SolveTSP(distances [][]int, depot int, budget time.Duration) []int {
	size := len(distances)
	if size == 0 {
		return []int{}
	}
	if depot < 0 || depot >= size {
		return nil
	}
	for _, row := range distances {
		if len(row) != size {
			return nil
		}
	}
	if size == 1 {
		return []int{0}
	}

	deadline := time.Now().Add(budget)

	route := cheapestArcRoute(distances, depot)
	route = twoOptImprove(distances, route, deadline)
	return route
}

func cheapestArcRoute(distances [][]int, depot int) []int {
	size := len(distances)
	visited := make([]bool, size)
	route := make([]int, 0, size)
	current := depot
	visited[current] = true
	route = append(route, current)

	for len(route) < size {
		next := -1
		best := 0
		for candidate := 0; candidate < size; candidate++ {
			if visited[candidate] {
				continue
			}
			d := distances[current][candidate]
			if next == -1 || d < best {
				next = candidate
				best = d
			}
		}
		visited[next] = true
		route = append(route, next)
		current = next
	}
	return route
}

// twoOptImprove repeatedly reverses route segments while it keeps
// finding shorter tours, checking the deadline between sweeps. The
// depot at index 0 never moves; the tour is open so the return edge
// is not counted. The delta only re-costs the two boundary edges,
// which assumes a symmetric matrix; on directed road distances the
// reversed interior arcs shift the true cost, so improvements are
// approximate there.
func twoOptImprove(distances [][]int, route []int, deadline time.Time) []int {
	n := len(route)
	improved := true
	for improved && time.Now().Before(deadline) {
		improved = false
		for i := 1; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				delta := distances[route[i-1]][route[j]] - distances[route[i-1]][route[i]]
				if j+1 < n {
					delta += distances[route[i]][route[j+1]] - distances[route[j]][route[j+1]]
				}
				if delta < 0 {
					reverse(route, i, j)
					improved = true
				}
			}
		}
	}
	return route
}

func reverse(route []int, i, j int) {
	for i < j {
		route[i], route[j] = route[j], route[i]
		i++
		j--
	}
}

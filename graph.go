package mapred

import "fmt"

// ShardGraph is an immutable DAG of shards. The shard list and its
// dependency edges are fixed at construction; NewShardGraph rejects
// graphs with out-of-range dependencies or cycles.
type ShardGraph struct {
	shards []*Shard
}

// NewShardGraph validates the shard list and wraps it in a graph.
func NewShardGraph(shards []*Shard) (*ShardGraph, error) {
	for i, shard := range shards {
		for _, dep := range shard.Dependencies {
			if dep < 0 || dep >= len(shards) {
				return nil, &ConfigError{
					Reason: fmt.Sprintf("shard %d depends on out-of-range shard %d", i, dep),
				}
			}
		}
	}

	if i, ok := findCycle(shards); ok {
		return nil, &ConfigError{
			Reason: fmt.Sprintf("shard dependencies contain a cycle through shard %d", i),
		}
	}

	return &ShardGraph{shards: shards}, nil
}

// Len returns the number of shards in the graph.
func (g *ShardGraph) Len() int {
	return len(g.shards)
}

// Shard returns the shard at index i.
func (g *ShardGraph) Shard(i int) *Shard {
	return g.shards[i]
}

// Dependencies returns the dependency indices of shard i.
func (g *ShardGraph) Dependencies(i int) []int {
	return g.shards[i].Dependencies
}

// findCycle runs a three-color depth-first search over the dependency
// edges and returns a shard that lies on a cycle, if any.
func findCycle(shards []*Shard) (int, bool) {
	const (
		unvisited = iota
		inProgress
		finished
	)

	state := make([]int, len(shards))

	var visit func(int) (int, bool)
	visit = func(i int) (int, bool) {
		state[i] = inProgress
		for _, dep := range shards[i].Dependencies {
			switch state[dep] {
			case inProgress:
				return dep, true
			case unvisited:
				if j, ok := visit(dep); ok {
					return j, true
				}
			}
		}
		state[i] = finished
		return 0, false
	}

	for i := range shards {
		if state[i] != unvisited {
			continue
		}
		if j, ok := visit(i); ok {
			return j, true
		}
	}
	return 0, false
}

package scheduler

import "fmt"

// Group is a fixed-size set of strands, one per logical lane of one
// subsystem. Lane types are small unsigned enums whose final value is the
// lane count sentinel.
type Group[L ~uint8] struct {
	strands []*Strand
}

// MakeStrands mints one strand per lane, all sharing the scheduler's
// lifetime. Each strand drains its queue on its own goroutine; strands do
// not run on the scheduler's worker pool.
func MakeStrands[L ~uint8](s *Scheduler, subsystem string, laneCount L) *Group[L] {
	strands := make([]*Strand, laneCount)
	for i := range strands {
		strands[i] = s.NewStrand(fmt.Sprintf("%s-%d", subsystem, i))
	}
	return &Group[L]{strands: strands}
}

// Lane returns the strand for the given lane.
func (g *Group[L]) Lane(lane L) *Strand {
	return g.strands[lane]
}

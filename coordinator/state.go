package coordinator

// State is a worker's position in the pipeline.
type State int

// States are entered in order; a worker that returns an
// error ends in Failed.
const (
	Initialized State = iota
	Partitioned
	Allocated
	Multiplied
	Added
	Reduced
	Finalized
	Failed
)

var stateNames = [...]string{
	Initialized: "Initialized",
	Partitioned: "Partitioned",
	Allocated:   "Allocated",
	Multiplied:  "Multiplied",
	Added:       "Added",
	Reduced:     "Reduced",
	Finalized:   "Finalized",
	Failed:      "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(?)"
	}
	return stateNames[s]
}

package synchronizer

// State is a step of one Replace invocation.
type State int

const (
	Idle State = iota
	Deleting
	DeleteFailed
	DeleteConfirmedEmpty
	DeleteConfirmedNonEmpty
	Creating
	CreateFailed
	Done
)

var stateNames = map[State]string{
	Idle:                    "Idle",
	Deleting:                "Deleting",
	DeleteFailed:            "DeleteFailed",
	DeleteConfirmedEmpty:    "DeleteConfirmedEmpty",
	DeleteConfirmedNonEmpty: "DeleteConfirmedNonEmpty",
	Creating:                "Creating",
	CreateFailed:            "CreateFailed",
	Done:                    "Done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case DeleteFailed, DeleteConfirmedEmpty, CreateFailed, Done:
		return true
	}
	return false
}

var transitions = map[State][]State{
	Idle:                    {Deleting},
	Deleting:                {DeleteFailed, DeleteConfirmedEmpty, DeleteConfirmedNonEmpty},
	DeleteConfirmedNonEmpty: {Creating},
	Creating:                {CreateFailed, Done},
}

// CanTransition reports whether from -> to is an edge of the Replace
// state machine.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

package lifecycle

import "fmt"

// State is the lifecycle position of a Module.
//
//	Unloaded --Load--> Loaded --Initialize ok--> Running
//	Loaded --Initialize fails--> Unloaded
//	Running --Tick fails--> Running
//	Running --Shutdown--> Unloading --> Unloaded
type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateRunning
	StateUnloading
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateRunning:
		return "running"
	case StateUnloading:
		return "unloading"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

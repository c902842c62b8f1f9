package prof

import "errors"

// ErrActive indicates a profiling session is already running.
var ErrActive = errors.New("profile session already active")

// Options selects what a session records. Empty paths are skipped.
type Options struct {
	CPU        string // CPU profile, recorded for the whole session
	Heap       string // heap snapshot written by Stop
	Contention bool   // also write block and mutex profiles beside Heap
	Addr       string // serve /debug/pprof/ on this address
}

// Empty reports whether o records nothing.
func (o Options) Empty() bool {
	return o.CPU == "" && o.Heap == "" && o.Addr == ""
}

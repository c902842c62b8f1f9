// Package prof records pprof profiles for a bridge process.
//
// It is conditionally compiled using the "profile" build tag:
//
//	go build -tags profile ./examples/fifo-hal/stk500/device
//
// Without the tag every function is a no-op, so the command line flags stay
// in place at no cost.
//
//	s, err := prof.Start(prof.Options{CPU: "cpu.prof", Heap: "heap.prof"})
//	if err != nil {
//	    return err
//	}
//	defer s.Stop()
//
// Block and mutex profiles are enabled with [Options.Contention] and
// written next to the heap profile. [Options.Addr] additionally serves
// /debug/pprof/ over HTTP for the life of the session.
package prof

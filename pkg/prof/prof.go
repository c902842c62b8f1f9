//go:build profile

package prof

import (
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	rpprof "runtime/pprof"
	"strings"
	"sync/atomic"

	"github.com/ardnew/stkbridge/pkg"
)

var active atomic.Bool

// Session is a running profiling session.
type Session struct {
	opts Options
	cpu  *os.File
	srv  *http.Server
}

// Enabled reports whether profiling support is compiled in.
func Enabled() bool { return true }

// Start begins a session. Only one session may run at a time.
func Start(opts Options) (*Session, error) {
	if !active.CompareAndSwap(false, true) {
		return nil, ErrActive
	}
	s := &Session{opts: opts}

	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			active.Store(false)
			return nil, err
		}
		if err := rpprof.StartCPUProfile(f); err != nil {
			f.Close()
			active.Store(false)
			return nil, err
		}
		s.cpu = f
	}

	if opts.Contention {
		runtime.SetBlockProfileRate(1)
		runtime.SetMutexProfileFraction(1)
	}

	if opts.Addr != "" {
		ln, err := net.Listen("tcp", opts.Addr)
		if err != nil {
			s.stopCPU()
			active.Store(false)
			return nil, err
		}
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		s.srv = &http.Server{Handler: mux}
		go s.srv.Serve(ln)
		pkg.LogInfo(pkg.ComponentBridge, "pprof listening", "addr", ln.Addr().String())
	}

	return s, nil
}

// Stop ends the session and writes the snapshot profiles.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	defer active.Store(false)

	var errs []error
	errs = append(errs, s.stopCPU())
	if s.srv != nil {
		errs = append(errs, s.srv.Close())
	}

	if s.opts.Heap != "" {
		runtime.GC()
		errs = append(errs, writeProfile("heap", s.opts.Heap))
		if s.opts.Contention {
			for _, name := range []string{"block", "mutex"} {
				errs = append(errs, writeProfile(name, siblingPath(s.opts.Heap, name)))
			}
			runtime.SetBlockProfileRate(0)
			runtime.SetMutexProfileFraction(0)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) stopCPU() error {
	if s.cpu == nil {
		return nil
	}
	rpprof.StopCPUProfile()
	err := s.cpu.Close()
	s.cpu = nil
	return err
}

// siblingPath turns "out/heap.prof" into "out/block.prof".
func siblingPath(heap, name string) string {
	dir, base := filepath.Split(heap)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "heap" {
		return filepath.Join(dir, name+ext)
	}
	return filepath.Join(dir, stem+"."+name+ext)
}

func writeProfile(name, path string) error {
	p := rpprof.Lookup(name)
	if p == nil {
		return errors.New("unknown profile " + name)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.WriteTo(f, 0)
}

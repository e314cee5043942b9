package core

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// CrashHandler receives a recovered panic value and its stack trace
type CrashHandler func(r any, stack []byte)

var (
	handler atomic.Pointer[CrashHandler]

	cleanupMu sync.Mutex
	cleanups  []func()
)

func init() {
	h := CrashHandler(exitHandler)
	handler.Store(&h)
}

// exitHandler prints the panic to stderr and terminates the process
func exitHandler(r any, stack []byte) {
	os.Stdout.Sync()
	fmt.Fprintf(os.Stderr, "\r\n\x1b[31mCRASH DETECTED: %v\x1b[0m\r\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", stack)
	os.Stderr.Sync()
	os.Exit(1)
}

// SetCrashHandler replaces the crash handler and returns a func restoring the previous one
func SetCrashHandler(h CrashHandler) (restore func()) {
	if h == nil {
		h = exitHandler
	}
	prev := handler.Swap(&h)
	return func() { handler.Store(prev) }
}

// RegisterCleanup adds fn to the cleanups run before the crash handler, e.g. terminal restore
// Returns a func that unregisters it
func RegisterCleanup(fn func()) (unregister func()) {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()

	cleanups = append(cleanups, fn)
	idx := len(cleanups) - 1

	return func() {
		cleanupMu.Lock()
		defer cleanupMu.Unlock()
		if idx < len(cleanups) {
			cleanups[idx] = nil
		}
	}
}

// HandleCrash runs registered cleanups in reverse order then hands r to the crash handler
func HandleCrash(r any) {
	if r == nil {
		return
	}

	cleanupMu.Lock()
	fns := make([]func(), len(cleanups))
	copy(fns, cleanups)
	cleanupMu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		if fns[i] != nil {
			runCleanup(fns[i])
		}
	}

	(*handler.Load())(r, debug.Stack())
}

// runCleanup isolates a panicking cleanup so the remaining ones still run
func runCleanup(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// Go runs fn in a new goroutine with panic recovery
// Use this instead of the 'go' keyword so the terminal is restored on crash
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}

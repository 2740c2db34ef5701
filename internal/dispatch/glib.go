package dispatch

import (
	"sync"

	"github.com/tinyzimmer/go-glib/glib"
)

// GLibLoop adapts the GLib default main context to the Loop interface, for
// embedding the camera stack into GTK/GStreamer applications that already
// run a GLib main loop.
type GLibLoop struct {
	mu      sync.Mutex
	loop    *glib.MainLoop
	done    chan struct{}
	running bool
}

func glibAvailable() bool { return true }

// NewGLibLoop creates a stopped loop over the default GLib main context.
func NewGLibLoop() *GLibLoop {
	return &GLibLoop{}
}

func (l *GLibLoop) Name() string { return "glib" }

func (l *GLibLoop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}
	l.loop = glib.NewMainLoop(glib.MainContextDefault(), false)
	l.done = make(chan struct{})
	l.running = true
	go func(loop *glib.MainLoop, done chan struct{}) {
		defer close(done)
		loop.Run()
	}(l.loop, l.done)
	return nil
}

func (l *GLibLoop) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	loop, done := l.loop, l.done
	l.mu.Unlock()
	loop.Quit()
	<-done
	return nil
}

// Post schedules fn as a one-shot idle source on the default main context.
func (l *GLibLoop) Post(fn func()) error {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if !running {
		return ErrStopped
	}
	_, err := glib.IdleAdd(func() bool {
		fn()
		return false
	})
	return err
}

func (l *GLibLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

package dispatch

import "sync"

// NativeLoop is a channel-backed Loop with no external dependencies. It is
// the fallback binding and the one used throughout the tests.
type NativeLoop struct {
	mu      sync.Mutex
	work    chan func()
	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewNativeLoop creates a stopped loop.
func NewNativeLoop() *NativeLoop {
	return &NativeLoop{}
}

func (l *NativeLoop) Name() string { return "native" }

func (l *NativeLoop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}
	l.work = make(chan func(), 64)
	l.quit = make(chan struct{})
	l.done = make(chan struct{})
	l.running = true
	go l.run(l.work, l.quit, l.done)
	return nil
}

func (l *NativeLoop) run(work chan func(), quit, done chan struct{}) {
	defer close(done)
	for {
		select {
		case fn := <-work:
			fn()
		case <-quit:
			return
		}
	}
}

func (l *NativeLoop) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	close(l.quit)
	done := l.done
	l.mu.Unlock()
	<-done
	return nil
}

func (l *NativeLoop) Post(fn func()) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrStopped
	}
	work, quit := l.work, l.quit
	l.mu.Unlock()
	select {
	case work <- fn:
		return nil
	case <-quit:
		return ErrStopped
	}
}

func (l *NativeLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

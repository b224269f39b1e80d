package core

import (
	"context"
	"io"
)

// Observer receives progress and is asked for cancellation before every part.
// It is called from the goroutine running Split or Join.
type Observer interface {
	// Progress reports the done fraction (0..1) of the current part and of the whole task.
	Progress(part, total float64)
	// Canceled is polled before every part; true aborts and rolls back the task.
	Canceled() bool
}

// Resolver picks one split set when a directory holds several.
type Resolver interface {
	// Resolve returns the chosen first part, or false to cancel the join.
	Resolve(candidates []FirstPart) (FirstPart, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(candidates []FirstPart) (FirstPart, bool)

func (f ResolverFunc) Resolve(candidates []FirstPart) (FirstPart, bool) {
	return f(candidates)
}

// ContextObserver cancels when ctx is done and forwards progress to fn (may be nil).
func ContextObserver(ctx context.Context, fn func(part, total float64)) Observer {
	return &_CtxObserver{ctx: ctx, fn: fn}
}

type _CtxObserver struct {
	ctx context.Context
	fn  func(part, total float64)
}

func (o *_CtxObserver) Progress(part, total float64) {
	if o.fn != nil {
		o.fn(part, total)
	}
}

func (o *_CtxObserver) Canceled() bool {
	return o.ctx.Err() != nil
}

type _NopObserver struct{}

func (_NopObserver) Progress(float64, float64) {}
func (_NopObserver) Canceled() bool            { return false }

// ----------  HELPER  -----------------------------------------------------------------------------------------------//

// trackReader counts bytes, reports progress and remembers the first read error,
// so a failed Encrypt/Decrypt can be blamed on the right side.
type trackReader struct {
	r      io.Reader
	n      int64
	err    error
	report func(n int64)
}

func (t *trackReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	t.n += int64(n)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	if n > 0 && t.report != nil {
		t.report(t.n)
	}
	return n, err
}

// trackWriter remembers the first write error.
type trackWriter struct {
	w   io.Writer
	err error
}

func (t *trackWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}

// fraction is done/all, 1 for an empty whole.
func fraction(done, all int64) float64 {
	if all <= 0 {
		return 1
	}
	return float64(done) / float64(all)
}

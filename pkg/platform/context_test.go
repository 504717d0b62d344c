package platform

import (
	"testing"
	"time"
)

func TestContextResumePicksUpAtLastCheckpoint(t *testing.T) {
	t.Parallel()

	ctx := NewContext()

	var trace []string

	ctx.Start(func(c *Context) {
		trace = append(trace, "a")
		c.Checkpoint()
		trace = append(trace, "b")
		c.Checkpoint()
		trace = append(trace, "c")
	})

	if !ctx.Resume(0) {
		t.Fatal("expected first resume to observe a checkpoint")
	}
	if got := len(trace); got != 1 || trace[0] != "a" {
		t.Fatalf("after first resume: trace=%v", trace)
	}

	if !ctx.Resume(0) {
		t.Fatal("expected second resume to observe a checkpoint")
	}
	if got := len(trace); got != 2 || trace[1] != "b" {
		t.Fatalf("after second resume: trace=%v", trace)
	}

	if !ctx.Resume(0) {
		t.Fatal("expected third resume to observe a checkpoint")
	}
	if got := len(trace); got != 3 || trace[2] != "c" {
		t.Fatalf("after third resume: trace=%v", trace)
	}
}

func TestContextResumeTimesOutWhenTaskDoesNotCheckpoint(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	release := make(chan struct{})

	ctx.Start(func(c *Context) {
		<-release
		c.Checkpoint()
	})

	if ctx.Resume(10 * time.Millisecond) {
		t.Fatal("expected Resume to time out before the task checkpointed")
	}

	close(release)

	if !ctx.Resume(time.Second) {
		t.Fatal("expected the delayed checkpoint to be observed on the next Resume")
	}
}

func TestContextResumeReturnsAfterTaskExit(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	done := make(chan struct{})

	ctx.Start(func(_ *Context) {
		close(done)
	})

	resumed := make(chan struct{})
	go func() {
		ctx.Resume(0)
		close(resumed)
	}()

	select {
	case <-resumed:
	case <-time.After(time.Second):
		t.Fatal("Resume did not return after task exit")
	}

	select {
	case <-done:
	default:
		t.Fatal("task goroutine did not run")
	}
}

// SPDX-License-Identifier: MPL-2.0

package workdir

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/connectedyard/licensescan/internal/testutil"
)

// These tests change the process working directory and must not run in
// parallel with each other.

func newTestGuard(t *testing.T) (*Guard, string) {
	t.Helper()
	home := testutil.MustEvalSymlinks(t, t.TempDir())
	t.Cleanup(testutil.MustChdir(t, home))
	g, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g, home
}

func TestGuard_DoRestoresHome(t *testing.T) {
	g, home := newTestGuard(t)
	if g.Home() != home {
		t.Fatalf("Home() = %q, want %q", g.Home(), home)
	}

	target := filepath.Join(home, "project")
	testutil.MustMkdirAll(t, target, 0o755)

	var inside string
	err := g.Do(t.Context(), target, func() error {
		inside = testutil.MustGetwd(t)
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if inside != target {
		t.Errorf("working directory inside Do = %q, want %q", inside, target)
	}
	if got := testutil.MustGetwd(t); got != home {
		t.Errorf("working directory after Do = %q, want %q", got, home)
	}
}

func TestGuard_DoRestoresOnError(t *testing.T) {
	g, home := newTestGuard(t)
	target := filepath.Join(home, "project")
	testutil.MustMkdirAll(t, target, 0o755)

	boom := errors.New("extraction exploded")
	err := g.Do(t.Context(), target, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("Do error = %v, want %v", err, boom)
	}
	if got := testutil.MustGetwd(t); got != home {
		t.Errorf("working directory after failed Do = %q, want %q", got, home)
	}
}

func TestGuard_DoMissingDirectory(t *testing.T) {
	g, home := newTestGuard(t)

	called := false
	err := g.Do(t.Context(), filepath.Join(home, "missing"), func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrAcquire) {
		t.Errorf("Do error = %v, want ErrAcquire", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Do error = %v, want os.ErrNotExist in chain", err)
	}
	if called {
		t.Error("fn must not run when the directory cannot be entered")
	}
}

func TestGuard_DoCanceledContext(t *testing.T) {
	g, home := newTestGuard(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	// Hold the slot so Acquire has to wait and observe the cancellation.
	release := make(chan struct{})
	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.Do(context.Background(), home, func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := g.Do(ctx, home, func() error { return nil })
	close(release)
	<-done

	if !errors.Is(err, ErrAcquire) || !errors.Is(err, context.Canceled) {
		t.Errorf("Do error = %v, want ErrAcquire and context.Canceled", err)
	}
}

func TestGuard_Serializes(t *testing.T) {
	g, home := newTestGuard(t)
	dirs := []string{"a", "b", "c", "d"}
	for _, d := range dirs {
		testutil.MustMkdirAll(t, filepath.Join(home, d), 0o755)
	}

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for _, d := range dirs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(context.Background(), filepath.Join(home, d), func() error {
				n := active.Add(1)
				for {
					m := maxActive.Load()
					if n <= m || maxActive.CompareAndSwap(m, n) {
						break
					}
				}
				wd, _ := os.Getwd()
				if filepath.Base(wd) != d {
					t.Errorf("inside %s, working directory is %s", d, wd)
				}
				active.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("Do(%s): %v", d, err)
			}
		}()
	}
	wg.Wait()

	if maxActive.Load() != 1 {
		t.Errorf("max concurrent acquisitions = %d, want 1", maxActive.Load())
	}
}

func TestGuard_Restore(t *testing.T) {
	g, home := newTestGuard(t)
	other := filepath.Join(home, "elsewhere")
	testutil.MustMkdirAll(t, other, 0o755)
	if err := os.Chdir(other); err != nil {
		t.Fatal(err)
	}

	if err := g.Restore(t.Context()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := testutil.MustGetwd(t); got != home {
		t.Errorf("working directory after Restore = %q, want %q", got, home)
	}
}

package crawler

import "testing"

// TestFrontier verifies queue order and dedup bookkeeping.
func TestFrontier(t *testing.T) {
	t.Parallel()

	t.Run("seeded with the normalized start URL at depth 0", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier("https://x.com/a/?b=2&a=1", true)
		task, ok := f.Dequeue()
		if !ok {
			t.Fatal("expected the seeded task")
		}
		if task.URL != "https://x.com/a?a=1&b=2" || task.Depth != 0 {
			t.Errorf("unexpected seed task %+v", task)
		}
	})

	t.Run("FIFO order", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier("https://x.com/", true)
		f.Enqueue("https://x.com/1", 1)
		f.Enqueue("https://x.com/2", 1)

		want := []string{"https://x.com/", "https://x.com/1", "https://x.com/2"}
		for _, w := range want {
			task, ok := f.Dequeue()
			if !ok || task.URL != w {
				t.Fatalf("expected %q next, got %+v (ok=%v)", w, task, ok)
			}
			f.MarkVisited(task.URL)
		}
	})

	t.Run("enqueue is a no-op for queued and visited URLs", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier("https://x.com/", true)
		if f.Enqueue("https://x.com/", 1) {
			t.Error("start URL should already be queued")
		}
		if !f.Enqueue("https://x.com/a", 1) {
			t.Error("fresh URL should enqueue")
		}
		if f.Enqueue("https://x.com/a", 1) {
			t.Error("queued URL should not enqueue twice")
		}

		f.MarkVisited("https://x.com/b")
		if f.Enqueue("https://x.com/b", 1) {
			t.Error("visited URL should not enqueue")
		}
	})

	t.Run("dequeue skips tasks visited after enqueue", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier("https://x.com/", true)
		f.Enqueue("https://x.com/a", 1)

		task, _ := f.Dequeue()
		f.MarkVisited(task.URL)
		// Simulate the defensive case: /a gets marked visited while
		// still sitting in the queue.
		f.MarkVisited("https://x.com/a")

		if _, ok := f.Dequeue(); ok {
			t.Error("expected visited task to be discarded")
		}
	})

	t.Run("same-origin filter", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier("https://x.com/", true)
		if f.Enqueue("https://other.com/", 1) {
			t.Error("off-origin URL should not enqueue when filtering")
		}

		open := NewFrontier("https://x.com/", false)
		if !open.Enqueue("https://other.com/", 1) {
			t.Error("off-origin URL should enqueue when filter is off")
		}
	})

	t.Run("MarkVisited is idempotent", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier("https://x.com/", true)
		f.MarkVisited("https://x.com/a")
		f.MarkVisited("https://x.com/a")
		if f.Enqueue("https://x.com/a", 1) {
			t.Error("visited URL enqueued after repeated MarkVisited")
		}
	})
}

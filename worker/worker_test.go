package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"forumline/internal/forum"
	"forumline/internal/metrics"
	"forumline/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubWorker struct {
	name string
	err  error
	ran  chan struct{}
}

func (s *stubWorker) Name() string { return s.name }

func (s *stubWorker) Start(ctx context.Context) error {
	close(s.ran)
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func TestManagerJoinsWorkerErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &stubWorker{name: "ok", ran: make(chan struct{})}
	bad := &stubWorker{name: "bad", err: boom, ran: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewManager(ok, bad).Start(ctx) }()

	<-ok.ran
	<-bad.ran
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}

func TestThreadWatcherCountsNewComments(t *testing.T) {
	st, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := storage.Migrate(st.DB(), "sqlite", "../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc := forum.NewService(st, forum.Options{Actor: "u1"})
	ctx := context.Background()
	sub, err := svc.CreateSubforum(ctx, "golang", "", "")
	if err != nil {
		t.Fatal(err)
	}
	pub, err := svc.SubmitPublication(ctx, forum.PublicationInput{SubforumID: sub.ID, Title: "t"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Follow(ctx, sub.ID); err != nil {
		t.Fatal(err)
	}

	w := &ThreadWatcher{Forum: svc, Limit: 5}
	if n := w.runOnce(ctx); n != 0 {
		t.Fatalf("first run reported %d", n)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.SubmitComment(ctx, pub.ID, "hi", nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := w.runOnce(ctx); n != 2 {
		t.Fatalf("second run reported %d, want 2", n)
	}
	if got, ok := svc.LastSnapshot(pub.ID); !ok || len(got) != 2 {
		t.Fatalf("snapshot after watch = %v %v", got, ok)
	}
	// the gauge tracks the comment total, not the delta
	if _, err := svc.SubmitComment(ctx, pub.ID, "again", nil); err != nil {
		t.Fatal(err)
	}
	w.runOnce(ctx)
	if got := testutil.ToFloat64(metrics.WatchComments.WithLabelValues(pub.ID)); got != 3 {
		t.Fatalf("watch gauge = %v, want 3", got)
	}
}

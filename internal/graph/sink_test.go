package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/seifer44/lexigraph/internal/platform/logger"
)

type fakeExecutor struct {
	batches   [][]GraphWrite
	failLeft  int
	verifyErr error
	closed    bool
}

func (f *fakeExecutor) verify(context.Context) error { return f.verifyErr }

func (f *fakeExecutor) applyBatch(_ context.Context, batch []GraphWrite) error {
	if f.failLeft > 0 {
		f.failLeft--
		return errors.New("transient commit failure")
	}
	copied := make([]GraphWrite, len(batch))
	copy(copied, batch)
	f.batches = append(f.batches, copied)
	return nil
}

func (f *fakeExecutor) close(context.Context) error {
	f.closed = true
	return nil
}

func nodeWrite(id string) GraphWrite {
	return UpsertNode{Label: "Concept", ID: id, Props: map[string]any{}}
}

func TestSinkOpenFailsFatally(t *testing.T) {
	exec := &fakeExecutor{verifyErr: errors.New("no route to host")}
	s := newSink(exec, SinkOptions{BatchSize: 2, MaxRetries: 1}, logger.NewNop())
	if err := s.Open(context.Background()); err == nil {
		t.Fatal("expected open failure to surface")
	}
}

func TestSinkFlushesAtBatchSize(t *testing.T) {
	exec := &fakeExecutor{}
	s := newSink(exec, SinkOptions{BatchSize: 2, MaxRetries: 1}, logger.NewNop())
	ctx := context.Background()

	if err := s.Write(ctx, nodeWrite("a")); err != nil {
		t.Fatal(err)
	}
	if len(exec.batches) != 0 {
		t.Fatal("flushed before reaching batch size")
	}
	if err := s.Write(ctx, nodeWrite("b")); err != nil {
		t.Fatal(err)
	}
	if len(exec.batches) != 1 || len(exec.batches[0]) != 2 {
		t.Fatalf("batches = %+v", exec.batches)
	}
}

func TestSinkCloseFlushesResidue(t *testing.T) {
	exec := &fakeExecutor{}
	s := newSink(exec, SinkOptions{BatchSize: 10, MaxRetries: 1}, logger.NewNop())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Write(ctx, nodeWrite(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if len(exec.batches) != 1 || len(exec.batches[0]) != 3 {
		t.Fatalf("batches = %+v", exec.batches)
	}
	if !exec.closed {
		t.Fatal("executor not closed")
	}
}

// ctxAwareExecutor refuses work on a dead context, like the real driver.
type ctxAwareExecutor struct {
	fakeExecutor
}

func (f *ctxAwareExecutor) applyBatch(ctx context.Context, batch []GraphWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.fakeExecutor.applyBatch(ctx, batch)
}

func TestSinkCloseFlushesAfterCancellation(t *testing.T) {
	exec := &ctxAwareExecutor{}
	s := newSink(exec, SinkOptions{BatchSize: 10, MaxRetries: 2}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Write(ctx, nodeWrite("a")); err != nil {
		t.Fatal(err)
	}
	cancel()

	if err := s.Close(ctx); err != nil {
		t.Fatalf("close after cancellation: %v", err)
	}
	if len(exec.batches) != 1 || len(exec.batches[0]) != 1 {
		t.Fatalf("buffered write lost on cancelled close, batches = %+v", exec.batches)
	}
	if !exec.closed {
		t.Fatal("executor not closed")
	}
}

func TestSinkRetriesWholeBatch(t *testing.T) {
	exec := &fakeExecutor{failLeft: 1}
	s := newSink(exec, SinkOptions{BatchSize: 2, MaxRetries: 3}, logger.NewNop())
	ctx := context.Background()

	if err := s.Write(ctx, nodeWrite("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, nodeWrite("b")); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(exec.batches) != 1 || len(exec.batches[0]) != 2 {
		t.Fatalf("retried batch must arrive whole, batches = %+v", exec.batches)
	}
}

func TestSinkFailsAfterRetryExhaustion(t *testing.T) {
	exec := &fakeExecutor{failLeft: 5}
	s := newSink(exec, SinkOptions{BatchSize: 1, MaxRetries: 2}, logger.NewNop())

	err := s.Write(context.Background(), nodeWrite("a"))
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if len(exec.batches) != 0 {
		t.Fatal("no batch should have committed")
	}
}

func TestSinkFlushEmptyIsNoop(t *testing.T) {
	exec := &fakeExecutor{}
	s := newSink(exec, SinkOptions{BatchSize: 2, MaxRetries: 1}, logger.NewNop())
	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(exec.batches) != 0 {
		t.Fatal("empty flush must not commit")
	}
}

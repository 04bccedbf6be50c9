package xrun

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestGroup_Empty(t *testing.T) {
	g, _ := NewGroup(context.Background())
	if err := g.Wait(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestGroup_ServiceError(t *testing.T) {
	expectedErr := errors.New("test error")

	g, ctx := NewGroup(context.Background())
	var stopped atomic.Bool
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		stopped.Store(true)
		return ctx.Err()
	})
	g.Go(func(ctx context.Context) error {
		return expectedErr
	})

	if err := g.Wait(); !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
	if ctx.Err() == nil {
		t.Error("context should be canceled")
	}
	if !stopped.Load() {
		t.Error("sibling service was not stopped")
	}
}

func TestGroup_CancelWithCause(t *testing.T) {
	manualErr := errors.New("manual cancel")

	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Cancel(manualErr)
	}()

	if err := g.Wait(); !errors.Is(err, manualErr) {
		t.Errorf("expected manual cancel error, got %v", err)
	}
}

func TestGroup_CancelNil(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.Cancel(nil)

	if err := g.Wait(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestGroup_ParentCancelFiltered(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g, _ := NewGroup(parent)
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()

	if err := g.Wait(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestGroup_InternalCanceledNotFiltered(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go(func(context.Context) error {
		// 服务内部调用下游得到的 Canceled，不是 Group 被取消
		return context.Canceled
	})

	if err := g.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGroup_NilFunc(t *testing.T) {
	g, _ := NewGroup(nil) //nolint:staticcheck // 验证 nil ctx 归一化
	g.Go(nil)
	if err := g.Wait(); !errors.Is(err, ErrNilFunc) {
		t.Errorf("expected ErrNilFunc, got %v", err)
	}
}

func TestGoWithName_LogsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	g, _ := NewGroup(context.Background(), WithLogger(logger), WithName("xwebd"))
	g.GoWithName("server", func(context.Context) error { return errors.New("bind failed") })
	_ = g.Wait()

	out := buf.String()
	for _, want := range []string{"service starting", "service exited with error", "group=xwebd", "service=server", "bind failed"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestRunServices_SignalError(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigCh)

	done := make(chan error, 1)
	go func() {
		done <- RunServicesWithOptions(ctx, nil, ServiceFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))
	}()

	sigCh <- syscall.SIGTERM

	select {
	case err := <-done:
		var sigErr *SignalError
		if !errors.As(err, &sigErr) {
			t.Fatalf("expected SignalError, got %v", err)
		}
		if sigErr.Signal != syscall.SIGTERM {
			t.Errorf("expected SIGTERM, got %v", sigErr.Signal)
		}
		if !errors.Is(err, ErrSignal) {
			t.Error("error should match ErrSignal")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Run to return")
	}
}

func TestRunServicesWithOptions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32
	svc := ServiceFunc(func(ctx context.Context) error {
		ran.Add(1)
		<-ctx.Done()
		return ctx.Err()
	})

	done := make(chan error, 1)
	go func() {
		done <- RunServicesWithOptions(ctx, []Option{WithName("test"), WithoutSignalHandler()}, svc, svc)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
	}
	if ran.Load() != 2 {
		t.Errorf("ran = %d, want 2", ran.Load())
	}
}

func TestRunServices_NilService(t *testing.T) {
	err := RunServicesWithOptions(context.Background(), []Option{WithoutSignalHandler()}, nil)
	if !errors.Is(err, ErrNilService) {
		t.Errorf("expected ErrNilService, got %v", err)
	}
}

func TestWithSignals_DefensiveCopy(t *testing.T) {
	sigs := []os.Signal{syscall.SIGINT}
	opt := WithSignals(sigs)
	sigs[0] = syscall.SIGKILL

	o := defaultOptions()
	opt(o)
	if o.signals[0] != syscall.SIGINT {
		t.Errorf("signals mutated: %v", o.signals)
	}
}

func TestDefaultSignals(t *testing.T) {
	a := DefaultSignals()
	a[0] = nil
	b := DefaultSignals()
	if b[0] != syscall.SIGINT {
		t.Errorf("DefaultSignals must return a fresh slice, got %v", b)
	}
	for _, s := range b {
		if s == syscall.SIGHUP {
			t.Error("SIGHUP must not terminate the process")
		}
	}
}

func TestSignalError_Error(t *testing.T) {
	if got := (&SignalError{Signal: syscall.SIGINT}).Error(); got != "received signal interrupt" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&SignalError{}).Error(); got != "received signal <nil>" {
		t.Errorf("Error() = %q", got)
	}
}

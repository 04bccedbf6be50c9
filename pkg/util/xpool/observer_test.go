package xpool

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// kindIs 按事件类型匹配 Observe 参数。
type kindIs EventKind

func (k kindIs) Matches(x any) bool {
	e, ok := x.(Event)
	return ok && e.Kind == EventKind(k)
}

func (k kindIs) String() string {
	return fmt.Sprintf("event kind %s", EventKind(k))
}

func TestObserver_LifecycleWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := NewMockObserver(ctrl)

	obs.EXPECT().Observe(kindIs(EventWorkerStarted)).Times(1)
	obs.EXPECT().Observe(kindIs(EventTaskSubmitted)).Times(1)
	obs.EXPECT().Observe(kindIs(EventTaskStarted)).Times(1)
	obs.EXPECT().Observe(kindIs(EventTaskDone)).Do(func(e Event) {
		assert.Equal(t, 0, e.WorkerID)
		assert.Equal(t, "mock", e.Pool)
		assert.GreaterOrEqual(t, e.Duration.Nanoseconds(), int64(0))
	}).Times(1)
	obs.EXPECT().Observe(kindIs(EventShutdownStarted)).Times(1)
	obs.EXPECT().Observe(kindIs(EventWorkerStopped)).Times(1)
	obs.EXPECT().Observe(kindIs(EventWorkerJoined)).Times(1)
	obs.EXPECT().Observe(kindIs(EventShutdownDone)).Times(1)

	p, err := New(1, WithName("mock"), WithLogger(quietLogger()), WithObserver(obs))
	require.NoError(t, err)
	require.NoError(t, p.Submit(func() {}))
	require.NoError(t, p.Close())
}

func TestObserver_PanicEventWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := NewMockObserver(ctrl)

	obs.EXPECT().Observe(kindIs(EventTaskPanicked)).Do(func(e Event) {
		var fault *TaskFault
		assert.True(t, errors.As(e.Err, &fault))
	}).Times(1)
	obs.EXPECT().Observe(gomock.Any()).AnyTimes()

	p, err := New(1, WithLogger(quietLogger()), WithObserver(obs))
	require.NoError(t, err)
	require.NoError(t, p.Submit(func() { panic("x") }))
	require.NoError(t, p.Close())
}

func TestObservers_SkipsNil(t *testing.T) {
	var n int
	o := Observers(nil, ObserverFunc(func(Event) { n++ }), nil)
	o.Observe(Event{Kind: EventTaskDone})
	assert.Equal(t, 1, n)
}

func TestWithObserver_Combines(t *testing.T) {
	var a, b int
	o := defaultOptions()
	WithObserver(ObserverFunc(func(Event) { a++ }))(&o)
	WithObserver(ObserverFunc(func(Event) { b++ }))(&o)
	WithObserver(nil)(&o)

	o.observer.Observe(Event{})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestLogObserver_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := NewLogObserver(logger)

	obs.Observe(Event{Kind: EventTaskPanicked, WorkerID: 2, Err: &TaskFault{WorkerID: 2, Value: "boom", Stack: []byte("stack")}})
	obs.Observe(Event{Kind: EventTaskRejected, WorkerID: -1, Err: ErrPoolClosed})
	obs.Observe(Event{Kind: EventShutdownDone, WorkerID: -1})
	obs.Observe(Event{Kind: EventTaskDone, WorkerID: 1})

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "shutdown_done")
	assert.NotContains(t, out, "task_done")
}

package todos

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/todomvc/internal/actor"
	"github.com/idilsaglam/todomvc/internal/metrics"
	"github.com/idilsaglam/todomvc/internal/model"
)

// fakeRef records what the coordinator sends to an item actor.
type fakeRef struct {
	id  string
	log *sendLog

	mu      sync.Mutex
	stopped bool
}

func (f *fakeRef) ID() string                  { return f.id }
func (f *fakeRef) Flush(context.Context) error { return nil }
func (f *fakeRef) Send(msg actor.Message)      { f.log.add(f.id, msg) }
func (f *fakeRef) sent() []actor.Message       { return f.log.forID(f.id) }

func (f *fakeRef) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeRef) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type sent struct {
	id  string
	msg actor.Message
}

type sendLog struct {
	mu      sync.Mutex
	entries []sent
}

func (l *sendLog) add(id string, msg actor.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, sent{id: id, msg: msg})
}

func (l *sendLog) forID(id string) []actor.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []actor.Message
	for _, e := range l.entries {
		if e.id == id {
			out = append(out, e.msg)
		}
	}
	return out
}

func (l *sendLog) order() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.id)
	}
	return out
}

type fakeSpawner struct {
	log  sendLog
	mu   sync.Mutex
	refs map[string]*fakeRef
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{refs: make(map[string]*fakeRef)}
}

func (s *fakeSpawner) spawn(it model.Item, _ actor.Parent) actor.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := &fakeRef{id: it.ID, log: &s.log}
	s.refs[it.ID] = ref
	return ref
}

func (s *fakeSpawner) ref(id string) *fakeRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs[id]
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newFake(t *testing.T, initial []model.Item) (*Machine, *fakeSpawner) {
	t.Helper()
	sp := newFakeSpawner()
	m := New(initial, WithSpawner(sp.spawn), WithIDFunc(seqIDs()))
	t.Cleanup(m.Close)
	return m, sp
}

func settle(t *testing.T, m *Machine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Settle(ctx))
}

func titles(todos []Todo) []string {
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.Title)
	}
	return out
}

func TestNewSpawnsAnActorPerItemAndBecomesReady(t *testing.T) {
	m, sp := newFake(t, []model.Item{
		{ID: "a", Title: "one"},
		{ID: "b", Title: "two", Completed: true},
	})

	s := m.Snapshot()
	assert.Equal(t, Ready, s.Value)
	assert.Equal(t, string(Ready), m.lifecycle.Current())
	assert.False(t, m.lifecycle.Can(eventLoaded), "loading happens once")
	assert.Equal(t, model.FilterAll, s.Filter)
	assert.Empty(t, s.Input)
	require.Len(t, s.Todos, 2)
	for _, td := range s.Todos {
		require.NotNil(t, td.Ref)
		assert.Same(t, sp.ref(td.ID), td.Ref)
	}
}

func TestNewRepairsMissingAndDuplicateIDs(t *testing.T) {
	m, _ := newFake(t, []model.Item{
		{Title: "legacy"},
		{ID: "x", Title: "first"},
		{ID: "x", Title: "second"},
	})

	s := m.Snapshot()
	require.Len(t, s.Todos, 3)
	assert.Equal(t, "id-1", s.Todos[0].ID)
	assert.Equal(t, "x", s.Todos[1].ID)
	assert.Equal(t, "id-2", s.Todos[2].ID)
	assert.Equal(t, []string{"legacy", "first", "second"}, titles(s.Todos))
}

func TestWithFilterSetsInitialFilter(t *testing.T) {
	m := New(nil, WithFilter(model.FilterActive), WithSpawner(newFakeSpawner().spawn))
	defer m.Close()
	assert.Equal(t, model.FilterActive, m.Snapshot().Filter)
}

func TestInputCommitAppendsUniqueItems(t *testing.T) {
	m, sp := newFake(t, nil)

	for i, title := range []string{"a", " b ", "c\t"} {
		require.True(t, m.Send(InputCommit{Value: title}))
		assert.Len(t, m.Snapshot().Todos, i+1)
	}

	s := m.Snapshot()
	assert.Equal(t, []string{"a", "b", "c"}, titles(s.Todos))
	ids := map[string]bool{}
	for _, td := range s.Todos {
		assert.False(t, ids[td.ID], "duplicate id %s", td.ID)
		ids[td.ID] = true
		assert.False(t, td.Completed)
		assert.Same(t, sp.ref(td.ID), td.Ref)
	}
}

func TestInputCommitIgnoresBlankText(t *testing.T) {
	m, _ := newFake(t, []model.Item{{ID: "a", Title: "keep"}})
	m.Send(InputChange{Value: "  draft"})
	before := m.Snapshot()

	assert.False(t, m.Send(InputCommit{Value: ""}))
	assert.False(t, m.Send(InputCommit{Value: "   "}))

	after := m.Snapshot()
	assert.Equal(t, before.Todos, after.Todos)
	assert.Equal(t, "  draft", after.Input)
}

func TestInputChangeThenCommit(t *testing.T) {
	m, _ := newFake(t, nil)

	require.True(t, m.Send(InputChange{Value: "abc"}))
	assert.Equal(t, "abc", m.Snapshot().Input)

	require.True(t, m.Send(InputCommit{Value: "abc"}))
	s := m.Snapshot()
	assert.Equal(t, "", s.Input)
	require.Len(t, s.Todos, 1)
	assert.Equal(t, "abc", s.Todos[0].Title)
	assert.False(t, s.Todos[0].Completed)
}

func TestInputChangeIsVerbatim(t *testing.T) {
	m, _ := newFake(t, nil)
	m.Send(InputChange{Value: "  spaced  "})
	assert.Equal(t, "  spaced  ", m.Snapshot().Input)
}

func TestItemDeleteUnknownIsNoop(t *testing.T) {
	m, sp := newFake(t, []model.Item{{ID: "a", Title: "one"}, {ID: "b", Title: "two"}})
	before := m.Snapshot()

	assert.False(t, m.Send(ItemDelete{ID: "nope"}))
	assert.False(t, m.Send(ItemDelete{ID: "nope"}))

	assert.Equal(t, before.Todos, m.Snapshot().Todos)
	assert.False(t, sp.ref("a").isStopped())
	assert.False(t, sp.ref("b").isStopped())
}

func TestItemDeleteRemovesAndStopsActor(t *testing.T) {
	m, sp := newFake(t, []model.Item{{ID: "a", Title: "one"}, {ID: "b", Title: "two"}, {ID: "c", Title: "three"}})
	snap := m.Snapshot()

	require.True(t, m.Send(ItemDelete{ID: "b"}))

	assert.Equal(t, []string{"one", "three"}, titles(m.Snapshot().Todos))
	assert.True(t, sp.ref("b").isStopped())
	assert.False(t, sp.ref("a").isStopped())
	// earlier snapshots are not affected
	assert.Equal(t, []string{"one", "two", "three"}, titles(snap.Todos))
}

func TestItemCommitUpdatesOnlyTheMatchAndKeepsRef(t *testing.T) {
	m, sp := newFake(t, []model.Item{{ID: "a", Title: "one"}, {ID: "b", Title: "two"}})
	before := m.Snapshot()

	require.True(t, m.Send(ItemCommit{Item: model.Item{ID: "b", Title: "two!", Completed: true}}))

	s := m.Snapshot()
	assert.Equal(t, before.Todos[0], s.Todos[0])
	assert.Equal(t, model.Item{ID: "b", Title: "two!", Completed: true}, s.Todos[1].Item)
	assert.Same(t, sp.ref("b"), s.Todos[1].Ref)
}

func TestItemCommitUnknownIsNoop(t *testing.T) {
	m, _ := newFake(t, []model.Item{{ID: "a", Title: "one"}})
	before := m.Snapshot()

	assert.False(t, m.Send(ItemCommit{Item: model.Item{ID: "zzz", Title: "ghost", Completed: true}}))
	assert.Equal(t, before.Todos, m.Snapshot().Todos)
}

func TestMarkAllBroadcastsInListOrder(t *testing.T) {
	m, sp := newFake(t, []model.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	require.True(t, m.Send(MarkAllCompleted{}))
	require.True(t, m.Send(MarkAllActive{}))

	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, sp.log.order())
	assert.Equal(t, []actor.Message{actor.SetCompleted{}, actor.SetActive{}}, sp.ref("b").sent())
	// the coordinator waits for the actors to commit
	for _, td := range m.Snapshot().Todos {
		assert.False(t, td.Completed)
	}
}

func TestSetFilterIsVerbatim(t *testing.T) {
	m, _ := newFake(t, []model.Item{
		{ID: "a", Title: "open"},
		{ID: "b", Title: "done", Completed: true},
	})

	require.True(t, m.Send(SetFilter{Filter: model.FilterCompleted}))
	s := m.Snapshot()
	assert.Equal(t, model.FilterCompleted, s.Filter)
	assert.Equal(t, []string{"done"}, titles(s.Visible()))

	require.True(t, m.Send(SetFilter{Filter: "bogus"}))
	s = m.Snapshot()
	assert.Equal(t, model.Filter("bogus"), s.Filter)
	assert.Equal(t, []string{"open", "done"}, titles(s.Visible()))
}

func TestClearCompletedIsIdempotent(t *testing.T) {
	m, sp := newFake(t, []model.Item{
		{ID: "a", Title: "one", Completed: true},
		{ID: "b", Title: "two"},
		{ID: "c", Title: "three", Completed: true},
		{ID: "d", Title: "four"},
	})

	m.Send(ClearCompleted{})
	once := m.Snapshot()
	m.Send(ClearCompleted{})
	twice := m.Snapshot()

	assert.Equal(t, []string{"two", "four"}, titles(once.Todos))
	assert.Equal(t, once.Todos, twice.Todos)
	assert.True(t, sp.ref("a").isStopped())
	assert.True(t, sp.ref("c").isStopped())
	assert.False(t, sp.ref("b").isStopped())
}

func TestCountsAndItems(t *testing.T) {
	m, _ := newFake(t, []model.Item{
		{ID: "a", Title: "one", Completed: true},
		{ID: "b", Title: "two"},
		{ID: "c", Title: "three"},
	})
	s := m.Snapshot()
	active, completed := s.Counts()
	assert.Equal(t, 2, active)
	assert.Equal(t, 1, completed)
	assert.Equal(t, []model.Item{
		{ID: "a", Title: "one", Completed: true},
		{ID: "b", Title: "two"},
		{ID: "c", Title: "three"},
	}, s.Items())
}

func TestCloseStopsActorsAndIgnoresEvents(t *testing.T) {
	sp := newFakeSpawner()
	m := New([]model.Item{{ID: "a", Title: "one"}}, WithSpawner(sp.spawn))

	m.Close()
	m.Close()

	assert.True(t, sp.ref("a").isStopped())
	assert.False(t, m.Send(InputCommit{Value: "late"}))
	assert.Len(t, m.Snapshot().Todos, 1)
}

func TestEndToEndClearCompleted(t *testing.T) {
	m := New(nil)
	defer m.Close()

	require.True(t, m.Send(InputCommit{Value: "Buy milk"}))
	require.True(t, m.Send(InputCommit{Value: "Walk dog"}))

	milk := m.Snapshot().Todos[0]
	require.Equal(t, "Buy milk", milk.Title)
	milk.Ref.Send(actor.SetCompleted{})
	settle(t, m)

	s := m.Snapshot()
	require.True(t, s.Todos[0].Completed)
	assert.Same(t, milk.Ref, s.Todos[0].Ref)

	m.Send(ClearCompleted{})
	assert.Equal(t, []string{"Walk dog"}, titles(m.Snapshot().Todos))
}

func TestMarkAllCompletedWithRealActors(t *testing.T) {
	initial := make([]model.Item, 0, 20)
	for i := 0; i < 20; i++ {
		initial = append(initial, model.Item{ID: fmt.Sprintf("t%02d", i), Title: fmt.Sprintf("task %d", i)})
	}
	// a tiny inbox forces actors to block on their notifications while Settle drains
	m := New(initial, WithInboxSize(2))
	defer m.Close()

	m.Send(MarkAllCompleted{})
	settle(t, m)

	active, completed := m.Snapshot().Counts()
	assert.Equal(t, 0, active)
	assert.Equal(t, 20, completed)

	m.Send(MarkAllActive{})
	settle(t, m)
	active, completed = m.Snapshot().Counts()
	assert.Equal(t, 20, active)
	assert.Equal(t, 0, completed)
}

func TestActorRenameAndDestroyFoldIn(t *testing.T) {
	m := New([]model.Item{{ID: "a", Title: "one"}, {ID: "b", Title: "two"}})
	defer m.Close()

	s := m.Snapshot()
	s.Todos[0].Ref.Send(actor.Rename{Title: "uno"})
	s.Todos[1].Ref.Send(actor.Destroy{})
	settle(t, m)

	assert.Equal(t, []string{"uno"}, titles(m.Snapshot().Todos))
}

func TestRunFoldsNotifications(t *testing.T) {
	m := New([]model.Item{{ID: "a", Title: "one"}})
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()

	m.Snapshot().Todos[0].Ref.Send(actor.Toggle{})
	require.Eventually(t, func() bool {
		return m.Snapshot().Todos[0].Completed
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestMetricsAreRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	m := New([]model.Item{{ID: "a", Title: "one"}}, WithMetrics(mt), WithSpawner(newFakeSpawner().spawn))

	m.Send(InputCommit{Value: "two"})
	m.Send(InputCommit{Value: " "})
	m.Send(ItemDelete{ID: "a"})

	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Events.WithLabelValues("INPUT_COMMIT", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Events.WithLabelValues("INPUT_COMMIT", "ignored")))
	assert.Equal(t, 2.0, testutil.ToFloat64(mt.ActorsSpawned))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.ActorsLive))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Items.WithLabelValues("active")))

	m.Close()
	assert.Equal(t, 0.0, testutil.ToFloat64(mt.ActorsLive))
}

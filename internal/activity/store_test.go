package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"curator/internal/logging"
)

const testSettle = 10 * time.Millisecond

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	base := []StoreOption{WithSettleDelay(testSettle)}
	return NewStore(logging.NewNop(), append(base, opts...)...)
}

func addCompleted(t *testing.T, store *Store, path, name, folder string) Item {
	t.Helper()
	item, err := store.Add(Item{
		FilePath:       path,
		OriginalName:   name,
		OriginalFolder: folder,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	completed := StatusCompleted
	suggested := "Suggested-" + name
	dest := "/dest"
	store.Update(item.ID, Update{
		Status:          &completed,
		SuggestedName:   &suggested,
		SuggestedFolder: &dest,
	})
	return item
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAddStartsProcessingWithPendingAction(t *testing.T) {
	store := newTestStore(t)
	item, err := store.Add(Item{FilePath: "/watched/a.txt", OriginalName: "a.txt", OriginalFolder: "/watched"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if item.ID == "" {
		t.Fatal("expected assigned id")
	}
	if item.Status != StatusProcessing {
		t.Fatalf("status = %s, want processing", item.Status)
	}
	if item.UserAction != ActionPending {
		t.Fatalf("user action = %s, want pending", item.UserAction)
	}
	if item.CreatedAt.IsZero() {
		t.Fatal("expected creation timestamp")
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	store := newTestStore(t)
	item, err := store.Add(Item{FilePath: "/watched/a.txt"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Add(Item{ID: item.ID, FilePath: "/watched/b.txt"}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestUnknownIDOperationsAreNoOps(t *testing.T) {
	store := newTestStore(t)
	// None of these may panic or error; UI races hit stale ids routinely.
	store.Update("missing", Update{})
	store.EditName("missing", "x")
	store.EditFolder("missing", "/x")
	store.Approve("missing")
	store.Reject("missing")
	if len(store.Queue()) != 0 || len(store.History()) != 0 {
		t.Fatal("no-op operations must not create state")
	}
}

// Scenario 1: completed item with no auto-apply stays in the queue awaiting
// review; no history record is produced.
func TestCompletedItemAwaitsManualReview(t *testing.T) {
	store := newTestStore(t)
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")

	time.Sleep(5 * testSettle)
	got, ok := store.Get(item.ID)
	if !ok {
		t.Fatal("item should remain in queue")
	}
	if got.Status != StatusCompleted || got.UserAction != ActionPending {
		t.Fatalf("state = %s/%s, want completed/pending", got.Status, got.UserAction)
	}
	if len(store.History()) != 0 {
		t.Fatal("no history record expected before review")
	}
}

// Scenario 2 equivalent at the store level: approval retires exactly one
// record with the suggested values resolved as final.
func TestApproveRetiresAfterSettle(t *testing.T) {
	store := newTestStore(t)
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")

	store.Approve(item.ID)
	got, ok := store.Get(item.ID)
	if !ok {
		t.Fatal("item should still be queued during the settle delay")
	}
	if got.Status != StatusApproved || got.UserAction != ActionApproved {
		t.Fatalf("state = %s/%s, want approved/approved", got.Status, got.UserAction)
	}

	waitFor(t, "retirement", func() bool { return len(store.History()) == 1 })
	records := store.History()
	if records[0].FinalName != "Suggested-a.txt" || records[0].FinalFolder != "/dest" {
		t.Fatalf("final values = %q/%q", records[0].FinalName, records[0].FinalFolder)
	}
	if records[0].Action != ActionApproved {
		t.Fatalf("action = %s, want approved", records[0].Action)
	}
	if _, ok := store.Get(item.ID); ok {
		t.Fatal("item must leave the queue on retirement")
	}
}

// Scenario 3: a terminal action issued during another action's settle delay
// wins; the stale timer must not produce a second record.
func TestLastTerminalActionWins(t *testing.T) {
	store := newTestStore(t)
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")

	store.Reject(item.ID)
	store.Approve(item.ID)

	waitFor(t, "retirement", func() bool { return len(store.History()) == 1 })
	time.Sleep(5 * testSettle)

	records := store.History()
	if len(records) != 1 {
		t.Fatalf("history records = %d, want exactly 1", len(records))
	}
	if records[0].Action != ActionApproved {
		t.Fatalf("action = %s, want approved (last action wins)", records[0].Action)
	}
}

// Scenario 4: user edits take precedence over suggestions in the record.
func TestEditedNameWinsInHistory(t *testing.T) {
	store := newTestStore(t)
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")

	store.EditName(item.ID, "custom.txt")
	store.Approve(item.ID)

	waitFor(t, "retirement", func() bool { return len(store.History()) == 1 })
	record := store.History()[0]
	if record.FinalName != "custom.txt" {
		t.Fatalf("final name = %q, want custom.txt", record.FinalName)
	}
	if record.FinalFolder != "/dest" {
		t.Fatalf("final folder = %q, want suggestion", record.FinalFolder)
	}
}

// Scenario 5: bulk approval only touches completed items.
func TestApproveAllSkipsProcessingItems(t *testing.T) {
	store := newTestStore(t)
	completed := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")
	processing, err := store.Add(Item{FilePath: "/watched/b.txt", OriginalName: "b.txt", OriginalFolder: "/watched"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	store.ApproveAll()
	waitFor(t, "retirement", func() bool { return len(store.History()) == 1 })

	if store.History()[0].ID != completed.ID {
		t.Fatal("wrong item retired")
	}
	got, ok := store.Get(processing.ID)
	if !ok {
		t.Fatal("processing item must remain queued")
	}
	if got.Status != StatusProcessing || got.UserAction != ActionPending {
		t.Fatalf("processing item mutated: %s/%s", got.Status, got.UserAction)
	}
}

func TestApproveAllIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")
	addCompleted(t, store, "/watched/b.txt", "b.txt", "/watched")

	store.ApproveAll()
	store.ApproveAll()
	waitFor(t, "retirements", func() bool { return len(store.History()) == 2 })
	time.Sleep(5 * testSettle)

	if got := len(store.History()); got != 2 {
		t.Fatalf("history records = %d, want 2", got)
	}
	store.ApproveAll() // empty completed set, must be a no-op
	if got := len(store.History()); got != 2 {
		t.Fatalf("history records after extra call = %d, want 2", got)
	}
}

func TestQueueAndHistoryStayDisjoint(t *testing.T) {
	store := newTestStore(t)
	var ids []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		item := addCompleted(t, store, "/watched/"+name, name, "/watched")
		ids = append(ids, item.ID)
	}
	store.Approve(ids[0])
	store.Reject(ids[1])

	check := func() {
		queued := map[string]struct{}{}
		for _, item := range store.Queue() {
			queued[item.ID] = struct{}{}
		}
		for _, record := range store.History() {
			if _, ok := queued[record.ID]; ok {
				t.Fatalf("id %s present in both queue and history", record.ID)
			}
		}
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		check()
		if len(store.History()) == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	check()
	if len(store.History()) != 2 {
		t.Fatalf("history records = %d, want 2", len(store.History()))
	}
}

func TestRejectDoesNotInvokeApplier(t *testing.T) {
	applier := &recordingApplier{}
	store := newTestStore(t, WithApplier(applier))
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")

	store.Reject(item.ID)
	waitFor(t, "retirement", func() bool { return len(store.History()) == 1 })

	if applier.calls() != 0 {
		t.Fatalf("applier invoked %d times for a rejected item", applier.calls())
	}
	if store.History()[0].Action != ActionRejected {
		t.Fatal("expected rejected record")
	}
}

func TestApplierFailureReturnsItemToReview(t *testing.T) {
	applier := &recordingApplier{err: errors.New("disk full")}
	store := newTestStore(t, WithApplier(applier))
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")

	store.Approve(item.ID)
	waitFor(t, "apply failure", func() bool {
		got, ok := store.Get(item.ID)
		return ok && got.UserAction == ActionPending && got.ErrorMessage != ""
	})

	got, _ := store.Get(item.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if len(store.History()) != 0 {
		t.Fatal("failed retirement must not produce a history record")
	}
}

func TestRejectDuringApplySupersedesApproval(t *testing.T) {
	release := make(chan struct{})
	applier := &recordingApplier{block: release}
	store := newTestStore(t, WithApplier(applier))
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")

	store.Approve(item.ID)
	waitFor(t, "applier start", func() bool { return applier.calls() == 1 })

	store.Reject(item.ID)
	close(release)

	waitFor(t, "retirement", func() bool { return len(store.History()) == 1 })
	time.Sleep(5 * testSettle)
	records := store.History()
	if len(records) != 1 || records[0].Action != ActionRejected {
		t.Fatalf("expected single rejected record, got %+v", records)
	}
}

func TestEditDuringApplyDoesNotReachHistory(t *testing.T) {
	release := make(chan struct{})
	applier := &recordingApplier{block: release}
	store := newTestStore(t, WithApplier(applier))
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")

	store.Approve(item.ID)
	waitFor(t, "applier start", func() bool { return applier.calls() == 1 })

	// The approved snapshot is what goes to disk; an override written
	// while it is being applied must not leak into the record.
	store.EditName(item.ID, "Late Edit.txt")
	close(release)

	waitFor(t, "retirement", func() bool { return len(store.History()) == 1 })
	if got := store.History()[0].FinalName; got != "Suggested-a.txt" {
		t.Fatalf("final name = %q, want the applied suggestion", got)
	}
}

func TestRetirementHookObservesRecord(t *testing.T) {
	var mu sync.Mutex
	var records []HistoryRecord
	store := newTestStore(t, WithRetirementHook(func(record HistoryRecord) {
		mu.Lock()
		records = append(records, record)
		mu.Unlock()
	}))
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")

	store.Approve(item.ID)
	waitFor(t, "hook", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(records) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if records[0].ID != item.ID || records[0].Action != ActionApproved {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestClearQueueCancelsPendingRetirements(t *testing.T) {
	store := newTestStore(t)
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")
	store.SetProgress(1, 1)
	store.Approve(item.ID)
	store.ClearQueue()

	time.Sleep(5 * testSettle)
	if len(store.History()) != 0 {
		t.Fatal("cleared item must not retire")
	}
	if current, total := store.Progress(); current != 0 || total != 0 {
		t.Fatalf("progress = (%d,%d), want reset", current, total)
	}
}

func TestClearQueueReleasesRetirementState(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"a.txt", "b.txt"} {
		item := addCompleted(t, store, "/watched/"+name, name, "/watched")
		store.Approve(item.ID)
	}
	store.ClearQueue()

	store.mu.Lock()
	gens, timers := len(store.gens), len(store.timers)
	store.mu.Unlock()
	if gens != 0 || timers != 0 {
		t.Fatalf("retirement state kept after clear: gens=%d timers=%d", gens, timers)
	}
	time.Sleep(5 * testSettle)
	if len(store.History()) != 0 {
		t.Fatal("cleared items must not retire")
	}
}

func TestClearHistory(t *testing.T) {
	store := newTestStore(t)
	item := addCompleted(t, store, "/watched/a.txt", "a.txt", "/watched")
	store.Approve(item.ID)
	waitFor(t, "retirement", func() bool { return len(store.History()) == 1 })

	if err := store.ClearHistory(context.Background()); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if len(store.History()) != 0 {
		t.Fatal("history should be empty after clear")
	}
}

func TestHistoryRecordRejectsPendingAction(t *testing.T) {
	item := &Item{ID: "x", UserAction: ActionPending, Status: StatusCompleted}
	if _, err := item.HistoryRecord(time.Now()); !errors.Is(err, ErrPendingRetirement) {
		t.Fatalf("expected ErrPendingRetirement, got %v", err)
	}
}

func TestHistoryRecordNilItemIsNoOp(t *testing.T) {
	var item *Item
	record, err := item.HistoryRecord(time.Now())
	if err != nil {
		t.Fatalf("nil item: %v", err)
	}
	if record.ID != "" {
		t.Fatal("expected zero record for nil item")
	}
}

func TestTerminalActionOnProcessingItemIsIgnored(t *testing.T) {
	store := newTestStore(t)
	item, err := store.Add(Item{FilePath: "/watched/a.txt"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	store.Approve(item.ID)
	time.Sleep(5 * testSettle)

	got, ok := store.Get(item.ID)
	if !ok {
		t.Fatal("item should remain queued")
	}
	if got.Status != StatusProcessing || got.UserAction != ActionPending {
		t.Fatalf("state = %s/%s, want untouched", got.Status, got.UserAction)
	}
}

type recordingApplier struct {
	mu    sync.Mutex
	count int
	err   error
	block chan struct{}
}

func (a *recordingApplier) Apply(ctx context.Context, item Item) (Item, error) {
	a.mu.Lock()
	a.count++
	a.mu.Unlock()
	if a.block != nil {
		<-a.block
	}
	if a.err != nil {
		return Item{}, a.err
	}
	return item, nil
}

func (a *recordingApplier) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

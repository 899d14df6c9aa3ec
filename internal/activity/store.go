package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"curator/internal/logging"
)

// ErrDuplicateID is returned when an item with an id already present in the
// queue is added.
var ErrDuplicateID = errors.New("item id already in queue")

// Applier performs the pending filesystem changes for an approved item
// during retirement, returning the item with its applied state updated.
type Applier interface {
	Apply(ctx context.Context, item Item) (Item, error)
}

// Archiver mirrors retired records into durable storage.
type Archiver interface {
	Append(ctx context.Context, record HistoryRecord) error
	Clear(ctx context.Context) error
}

// Update is a partial merge applied to a queue item. Nil fields are left
// untouched.
type Update struct {
	Status            *Status
	FilePath          *string
	SuggestedName     *string
	SuggestedFolder   *string
	Summary           *string
	AutoRenameApplied *bool
	AutoMoveApplied   *bool
	UserAction        *UserAction
	ErrorMessage      *string
}

// Store is the authoritative state container for the live review queue and
// the retired history. All mutations go through its methods; operations on
// unknown ids are deliberate no-ops so UI races never fail loudly.
type Store struct {
	logger   *slog.Logger
	settle   time.Duration
	applier  Applier
	archiver Archiver
	retired  func(HistoryRecord)
	now      func() time.Time

	mu      sync.Mutex
	order   []string
	items   map[string]*Item
	history []HistoryRecord
	gens    map[string]uint64
	timers  map[string]*time.Timer
	current int
	total   int
}

// StoreOption configures optional Store behavior.
type StoreOption func(*Store)

// WithSettleDelay overrides the pause between a terminal action and the
// item's retirement into history.
func WithSettleDelay(d time.Duration) StoreOption {
	return func(s *Store) {
		if d >= 0 {
			s.settle = d
		}
	}
}

// WithApplier installs the collaborator that materializes approved items
// during retirement.
func WithApplier(applier Applier) StoreOption {
	return func(s *Store) { s.applier = applier }
}

// WithArchiver installs the collaborator that persists retired records.
func WithArchiver(archiver Archiver) StoreOption {
	return func(s *Store) { s.archiver = archiver }
}

// WithRetirementHook installs a callback observing every record that
// lands in history. It runs outside the store lock, after the archiver.
func WithRetirementHook(hook func(HistoryRecord)) StoreOption {
	return func(s *Store) { s.retired = hook }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

const defaultSettleDelay = 500 * time.Millisecond

// NewStore constructs an empty activity store.
func NewStore(logger *slog.Logger, opts ...StoreOption) *Store {
	store := &Store{
		logger: logging.NewComponentLogger(logger, "activity"),
		settle: defaultSettleDelay,
		now:    func() time.Time { return time.Now().UTC() },
		items:  make(map[string]*Item),
		gens:   make(map[string]uint64),
		timers: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Add inserts a new item into the queue. The item always starts at
// StatusProcessing with a pending user action. An empty id is assigned a
// fresh identifier; a duplicate id is rejected.
func (s *Store) Add(item Item) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if _, exists := s.items[item.ID]; exists {
		return Item{}, fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
	}
	item.Status = StatusProcessing
	item.UserAction = ActionPending
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}

	stored := item
	s.items[item.ID] = &stored
	s.order = append(s.order, item.ID)
	return item, nil
}

// Update applies a partial merge to a queue item. Unknown ids are no-ops.
func (s *Store) Update(id string, update Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		s.logStale("update", id)
		return
	}
	if update.Status != nil {
		item.Status = *update.Status
	}
	if update.FilePath != nil {
		item.FilePath = *update.FilePath
	}
	if update.SuggestedName != nil {
		item.SuggestedName = *update.SuggestedName
	}
	if update.SuggestedFolder != nil {
		item.SuggestedFolder = *update.SuggestedFolder
	}
	if update.Summary != nil {
		item.Summary = *update.Summary
	}
	if update.AutoRenameApplied != nil {
		item.AutoRenameApplied = *update.AutoRenameApplied
	}
	if update.AutoMoveApplied != nil {
		item.AutoMoveApplied = *update.AutoMoveApplied
	}
	if update.UserAction != nil {
		item.UserAction = *update.UserAction
	}
	if update.ErrorMessage != nil {
		item.ErrorMessage = *update.ErrorMessage
	}
}

// EditName records a user override for the suggested name. The write is
// accepted at any status; callers gate the editing surface on CanEditName.
func (s *Store) EditName(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		s.logStale("edit name", id)
		return
	}
	item.EditedName = name
}

// EditFolder records a user override for the suggested folder.
func (s *Store) EditFolder(id, folder string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		s.logStale("edit folder", id)
		return
	}
	item.EditedFolder = folder
}

// Approve marks an item approved and schedules its retirement after the
// settle delay. A later terminal action on the same id supersedes any
// pending retirement.
func (s *Store) Approve(id string) {
	s.terminal(id, ActionApproved, StatusApproved)
}

// Reject marks an item rejected and schedules its retirement.
func (s *Store) Reject(id string) {
	s.terminal(id, ActionRejected, StatusRejected)
}

// ApproveAll approves every item currently completed. Items still
// processing are left untouched. Safe to call repeatedly.
func (s *Store) ApproveAll() {
	for _, id := range s.completedIDs() {
		s.Approve(id)
	}
}

// RejectAll rejects every item currently completed.
func (s *Store) RejectAll() {
	for _, id := range s.completedIDs() {
		s.Reject(id)
	}
}

// ClearQueue drops every live item, cancels pending retirements, and
// resets progress counters. History is untouched.
func (s *Store) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	// Stale timers already in flight bail out on the missing item, so the
	// generation entries can go with the queue.
	s.gens = make(map[string]uint64)
	s.items = make(map[string]*Item)
	s.order = nil
	s.current = 0
	s.total = 0
}

// ClearHistory removes every retired record, in memory and in the archive.
func (s *Store) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	s.history = nil
	archiver := s.archiver
	s.mu.Unlock()

	if archiver != nil {
		if err := archiver.Clear(ctx); err != nil {
			return fmt.Errorf("clear history archive: %w", err)
		}
	}
	return nil
}

// SetProgress records the batch progress pair reported by the processor.
func (s *Store) SetProgress(current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = current
	s.total = total
}

// Progress returns the last recorded (current, total) progress pair.
func (s *Store) Progress() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.total
}

// Get returns a snapshot of a queue item.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Queue returns a snapshot of live items in insertion order.
func (s *Store) Queue() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		if item, ok := s.items[id]; ok {
			items = append(items, *item)
		}
	}
	return items
}

// History returns a snapshot of retired records, most recent first.
func (s *Store) History() []HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]HistoryRecord, len(s.history))
	copy(records, s.history)
	return records
}

func (s *Store) completedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if item, ok := s.items[id]; ok && item.Status == StatusCompleted {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Store) terminal(id string, action UserAction, status Status) {
	s.mu.Lock()
	item, ok := s.items[id]
	if !ok {
		s.logStale(string(action), id)
		s.mu.Unlock()
		return
	}
	if item.Status == StatusProcessing {
		// No suggestion to act on yet.
		s.logger.Debug("ignoring terminal action on processing item",
			logging.String(logging.FieldItemID, id),
			logging.String("action", string(action)),
		)
		s.mu.Unlock()
		return
	}

	item.UserAction = action
	item.Status = status
	item.ErrorMessage = ""

	s.gens[id]++
	gen := s.gens[id]
	if timer, exists := s.timers[id]; exists {
		timer.Stop()
	}
	s.timers[id] = time.AfterFunc(s.settle, func() {
		s.retire(id, gen)
	})
	s.mu.Unlock()
}

// retire converts a settled item into history and removes it from the
// queue. The generation guard ensures a stale timer from a superseded
// action can never retire the item.
func (s *Store) retire(id string, gen uint64) {
	s.mu.Lock()
	item, ok := s.items[id]
	if !ok || s.gens[id] != gen || !item.UserAction.IsTerminal() {
		s.mu.Unlock()
		return
	}
	snapshot := *item
	applier := s.applier
	s.mu.Unlock()

	if applier != nil && snapshot.UserAction == ActionApproved {
		applied, err := applier.Apply(context.Background(), snapshot)
		if err != nil {
			s.failRetirement(id, gen, err)
			return
		}
		snapshot = applied
	}

	s.mu.Lock()
	current, ok := s.items[id]
	if !ok || s.gens[id] != gen {
		// A newer action won while the applier ran.
		s.mu.Unlock()
		return
	}
	*current = snapshot
	record, err := current.HistoryRecord(s.now())
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("retirement conversion failed",
			logging.String(logging.FieldItemID, id),
			logging.Error(err),
		)
		return
	}
	delete(s.items, id)
	delete(s.gens, id)
	if timer, exists := s.timers[id]; exists {
		timer.Stop()
		delete(s.timers, id)
	}
	s.order = removeID(s.order, id)
	s.history = append([]HistoryRecord{record}, s.history...)
	archiver := s.archiver
	s.mu.Unlock()

	if archiver != nil {
		if err := archiver.Append(context.Background(), record); err != nil {
			s.logger.Warn("failed to archive history record",
				logging.String(logging.FieldItemID, record.ID),
				logging.Error(err),
			)
		}
	}
	if s.retired != nil {
		s.retired(record)
	}
}

// failRetirement returns an item to manual review after its applier
// failed, so the queue and history never end up inconsistent.
func (s *Store) failRetirement(id string, gen uint64, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || s.gens[id] != gen {
		return
	}
	item.UserAction = ActionPending
	item.Status = StatusCompleted
	item.ErrorMessage = cause.Error()
	s.logger.Warn("retirement apply failed; item returned to review",
		logging.String(logging.FieldItemID, id),
		logging.Error(cause),
	)
}

func (s *Store) logStale(operation, id string) {
	s.logger.Debug("ignoring operation on unknown item",
		logging.String("operation", operation),
		logging.String(logging.FieldItemID, id),
	)
}

func removeID(order []string, id string) []string {
	for i, candidate := range order {
		if candidate == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

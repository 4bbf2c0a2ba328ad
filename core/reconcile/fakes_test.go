package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"drift-reconciler/core/lock"
	"drift-reconciler/core/reconcile"
)

// memStore is an in-memory RecordStore.
type memStore struct {
	mu          sync.Mutex
	records     []reconcile.Record
	seq         int
	latestCalls int
}

func (s *memStore) Latest(_ context.Context, tenantID, entityType string) (*reconcile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestCalls++

	var latest *reconcile.Record
	for i := range s.records {
		r := s.records[i]
		if r.TenantID != tenantID || r.EntityType != entityType {
			continue
		}
		if latest == nil || r.StartedAt >= latest.StartedAt {
			latest = &r
		}
	}
	return latest, nil
}

func (s *memStore) Create(_ context.Context, record reconcile.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	record.ID = fmt.Sprintf("rec-%03d", s.seq)
	s.records = append(s.records, record)
	return record.ID, nil
}

func (s *memStore) Update(_ context.Context, record reconcile.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID != record.ID {
			continue
		}
		if s.records[i].Status != reconcile.StatusInProgress {
			return reconcile.ErrRecordFinalized
		}
		s.records[i] = record
		return nil
	}
	return errors.New("record not found")
}

func (s *memStore) seed(r reconcile.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	r.ID = fmt.Sprintf("seed-%03d", s.seq)
	s.records = append(s.records, r)
}

func (s *memStore) all() []reconcile.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reconcile.Record(nil), s.records...)
}

func (s *memStore) byID(id string) reconcile.Record {
	for _, r := range s.all() {
		if r.ID == id {
			return r
		}
	}
	return reconcile.Record{}
}

// rowsInWindow returns the sorted ids of rows created inside w.
func rowsInWindow(rows map[string]reconcile.Row, w reconcile.Window) reconcile.IDSet {
	set := reconcile.IDSet{}
	for id, r := range rows {
		if r.CreatedAt >= w.Start && r.CreatedAt <= w.End {
			set[id] = struct{}{}
		}
	}
	return set
}

// fakePrimary serves rows from memory.
type fakePrimary struct {
	mu       sync.Mutex
	rows     map[string]reconcile.Row
	idsCalls int
	// idsErrs is consumed one per IDsInWindow call.
	idsErrs []error
	// onIDs runs outside the mutex on every IDsInWindow call.
	onIDs      func(call int)
	fetchCalls map[string]int
	vanished   map[string]bool
}

func newPrimary(rows ...reconcile.Row) *fakePrimary {
	p := &fakePrimary{
		rows:       make(map[string]reconcile.Row),
		fetchCalls: make(map[string]int),
		vanished:   make(map[string]bool),
	}
	for _, r := range rows {
		p.rows[r.ID] = r
	}
	return p
}

func (p *fakePrimary) IDsInWindow(_ context.Context, _ string, w reconcile.Window) (reconcile.IDSet, error) {
	p.mu.Lock()
	p.idsCalls++
	call := p.idsCalls
	hook := p.onIDs
	var err error
	if len(p.idsErrs) > 0 {
		err, p.idsErrs = p.idsErrs[0], p.idsErrs[1:]
	}
	ids := rowsInWindow(p.rows, w)
	p.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (p *fakePrimary) CountInWindow(ctx context.Context, tenantID string, w reconcile.Window) (int64, error) {
	ids, err := p.IDsInWindow(ctx, tenantID, w)
	return int64(len(ids)), err
}

func (p *fakePrimary) Fetch(_ context.Context, _ string, id string) (reconcile.Row, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls[id]++
	if p.vanished[id] {
		return reconcile.Row{}, reconcile.ErrRowNotFound
	}
	r, ok := p.rows[id]
	if !ok {
		return reconcile.Row{}, reconcile.ErrRowNotFound
	}
	return r, nil
}

func (p *fakePrimary) Statuses(_ context.Context, _ string, ids []string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string)
	for _, id := range ids {
		if r, ok := p.rows[id]; ok {
			out[id] = r.Status
		}
	}
	return out, nil
}

func (p *fakePrimary) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idsCalls
}

// fakeMirror is a mutable in-memory mirror table.
type fakeMirror struct {
	mu           sync.Mutex
	rows         map[string]reconcile.Row
	running      map[string]bool
	idsCalls     int
	idsErr       error
	insertCalls  map[string]int
	failInsert   map[string]bool
	panicInsert  bool
	deleteCalls  int
	deleteErr    error
	replaceCalls int
}

func newMirror(rows ...reconcile.Row) *fakeMirror {
	m := &fakeMirror{
		rows:        make(map[string]reconcile.Row),
		running:     map[string]bool{"RUNNING": true},
		insertCalls: make(map[string]int),
		failInsert:  make(map[string]bool),
	}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *fakeMirror) IDsInWindow(_ context.Context, _ string, w reconcile.Window) (reconcile.IDSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idsCalls++
	if m.idsErr != nil {
		return nil, m.idsErr
	}
	return rowsInWindow(m.rows, w), nil
}

func (m *fakeMirror) CountInWindow(ctx context.Context, tenantID string, w reconcile.Window) (int64, error) {
	ids, err := m.IDsInWindow(ctx, tenantID, w)
	return int64(len(ids)), err
}

func (m *fakeMirror) RunningStatuses(_ context.Context, _ string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for id, r := range m.rows {
		if m.running[r.Status] {
			out[id] = r.Status
		}
	}
	return out, nil
}

func (m *fakeMirror) Insert(_ context.Context, row reconcile.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls[row.ID]++
	if m.panicInsert {
		panic("mirror exploded")
	}
	if m.failInsert[row.ID] {
		return errors.New("connection reset")
	}
	if _, ok := m.rows[row.ID]; !ok {
		m.rows[row.ID] = row
	}
	return nil
}

func (m *fakeMirror) DeleteBatch(_ context.Context, _ string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, id := range ids {
		delete(m.rows, id)
	}
	return nil
}

func (m *fakeMirror) UpdateStatus(_ context.Context, _ string, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil
	}
	r.Status = status
	m.rows[id] = r
	return nil
}

func (m *fakeMirror) Replace(_ context.Context, row reconcile.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	m.rows[row.ID] = row
	return nil
}

func (m *fakeMirror) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rows))
	for id := range m.rows {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *fakeMirror) status(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Status
}

func (m *fakeMirror) totalInserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.insertCalls {
		n += c
	}
	return n
}

// countingLocker records how often the lock was requested.
type countingLocker struct {
	reconcile.Locker
	mu    sync.Mutex
	calls int
}

func (c *countingLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (reconcile.Lock, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Locker.Acquire(ctx, key, wait, lease)
}

// recordingObserver keeps every notification.
type recordingObserver struct {
	mu       sync.Mutex
	finished []reconcile.Record
	drifts   []reconcile.Drift
	skipped  []string
}

func (o *recordingObserver) AttemptFinished(_ context.Context, record reconcile.Record, drift reconcile.Drift) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, record)
	o.drifts = append(o.drifts, drift)
}

func (o *recordingObserver) AttemptSkipped(_, _, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped = append(o.skipped, reason)
}

// lockStateObserver captures whether the pair lock was still held when notified.
type lockStateObserver struct {
	locker *lock.MemoryLocker
	key    string
	held   []bool
}

func (o *lockStateObserver) AttemptFinished(context.Context, reconcile.Record, reconcile.Drift) {
	o.held = append(o.held, o.locker.Held(o.key))
}

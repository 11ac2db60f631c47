package flagdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"gridsight.dev/internal/sim/vision"
)

// SQLiteFlags is a durable vision.FlagStore: established invisibility states
// and visibility overrides survive restarts. Reads are served from an
// in-memory mirror loaded at open; writes go through a single writer
// goroutine so the engine never blocks on disk.
type SQLiteFlags struct {
	db *sql.DB

	mu  sync.RWMutex
	inv map[invKey]vision.InvisibilityRecord
	ovr map[ovrKey]vision.Override

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type invKey struct {
	observer string
	subject  string
}

type ovrKey struct {
	anchor    string
	direction vision.Direction
}

type reqKind int

const (
	reqPutInv reqKind = iota + 1
	reqClearInvSubject
	reqPutOvr
	reqDelOvr
	reqClearOvr
)

type req struct {
	kind reqKind

	invObserver string
	invSubject  string
	inv         vision.InvisibilityRecord

	ovrAnchor string
	ovrDir    vision.Direction
	ovr       vision.Override
}

func Open(path string) (*SQLiteFlags, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteFlags{
		db:  db,
		inv: map[invKey]vision.InvisibilityRecord{},
		ovr: map[ovrKey]vision.Override{},
		ch:  make(chan req, 4096),
	}
	if err := s.loadAll(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS invisibility (
			observer_id TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			was_visible INTEGER NOT NULL,
			previous_state TEXT NOT NULL,
			established_state TEXT NOT NULL,
			established_at TEXT NOT NULL,
			PRIMARY KEY (observer_id, subject_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_invisibility_subject ON invisibility(subject_id);`,
		`CREATE TABLE IF NOT EXISTS overrides (
			anchor_id TEXT NOT NULL,
			direction TEXT NOT NULL,
			id TEXT NOT NULL,
			observer_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			state TEXT NOT NULL,
			active INTEGER NOT NULL,
			PRIMARY KEY (anchor_id, direction)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteFlags) loadAll() error {
	rows, err := s.db.Query(`SELECT observer_id, subject_id, was_visible, previous_state, established_state, established_at FROM invisibility`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var k invKey
		var wasVisible int
		var prev, est, at string
		if err := rows.Scan(&k.observer, &k.subject, &wasVisible, &prev, &est, &at); err != nil {
			return err
		}
		rec := vision.InvisibilityRecord{WasVisible: wasVisible != 0, Established: true}
		rec.PreviousState, _ = vision.ParseState(prev)
		rec.EstablishedState, _ = vision.ParseState(est)
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			rec.EstablishedAt = ts
		}
		s.inv[k] = rec
	}
	if err := rows.Err(); err != nil {
		return err
	}

	orows, err := s.db.Query(`SELECT anchor_id, direction, id, observer_id, target_id, state, active FROM overrides`)
	if err != nil {
		return err
	}
	defer orows.Close()
	for orows.Next() {
		var anchor, dir, id, obs, tgt, state string
		var active int
		if err := orows.Scan(&anchor, &dir, &id, &obs, &tgt, &state, &active); err != nil {
			return err
		}
		d, ok := vision.ParseDirection(dir)
		if !ok {
			continue
		}
		o := vision.Override{ID: id, ObserverID: obs, TargetID: tgt, Direction: d, Active: active != 0}
		o.State, _ = vision.ParseState(state)
		s.ovr[ovrKey{anchor: anchor, direction: d}] = o
	}
	return orows.Err()
}

func (s *SQLiteFlags) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteFlags) enqueue(r req) {
	if s.closed.Load() {
		return
	}
	// Blocking send: flag writes are rare and must not be lost.
	s.ch <- r
}

func (s *SQLiteFlags) Invisibility(observerID, subjectID string) (vision.InvisibilityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.inv[invKey{observer: observerID, subject: subjectID}]
	return rec, ok
}

func (s *SQLiteFlags) PutInvisibility(observerID, subjectID string, rec vision.InvisibilityRecord) {
	s.mu.Lock()
	s.inv[invKey{observer: observerID, subject: subjectID}] = rec
	s.mu.Unlock()
	s.enqueue(req{kind: reqPutInv, invObserver: observerID, invSubject: subjectID, inv: rec})
}

func (s *SQLiteFlags) ClearInvisibilityForSubject(subjectID string) {
	s.mu.Lock()
	for k := range s.inv {
		if k.subject == subjectID {
			delete(s.inv, k)
		}
	}
	s.mu.Unlock()
	s.enqueue(req{kind: reqClearInvSubject, invSubject: subjectID})
}

func (s *SQLiteFlags) Override(anchorID string, dir vision.Direction) (vision.Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.ovr[ovrKey{anchor: anchorID, direction: dir}]
	return o, ok
}

func (s *SQLiteFlags) Overrides() []vision.Override {
	s.mu.RLock()
	out := make([]vision.Override, 0, len(s.ovr))
	for _, o := range s.ovr {
		out = append(out, o)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *SQLiteFlags) PutOverride(o vision.Override) {
	anchor := o.TargetID
	if o.Direction == vision.DirectionTo {
		anchor = o.ObserverID
	}
	s.mu.Lock()
	s.ovr[ovrKey{anchor: anchor, direction: o.Direction}] = o
	s.mu.Unlock()
	s.enqueue(req{kind: reqPutOvr, ovrAnchor: anchor, ovrDir: o.Direction, ovr: o})
}

func (s *SQLiteFlags) RemoveOverride(anchorID string, dir vision.Direction) {
	s.mu.Lock()
	delete(s.ovr, ovrKey{anchor: anchorID, direction: dir})
	s.mu.Unlock()
	s.enqueue(req{kind: reqDelOvr, ovrAnchor: anchorID, ovrDir: dir})
}

func (s *SQLiteFlags) ClearOverrides() {
	s.mu.Lock()
	s.ovr = map[ovrKey]vision.Override{}
	s.mu.Unlock()
	s.enqueue(req{kind: reqClearOvr})
}

func (s *SQLiteFlags) loop() {
	for r := range s.ch {
		var err error
		switch r.kind {
		case reqPutInv:
			wasVisible := 0
			if r.inv.WasVisible {
				wasVisible = 1
			}
			_, err = s.db.Exec(
				`INSERT INTO invisibility (observer_id, subject_id, was_visible, previous_state, established_state, established_at)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT(observer_id, subject_id) DO UPDATE SET
				   was_visible=excluded.was_visible,
				   previous_state=excluded.previous_state,
				   established_state=excluded.established_state,
				   established_at=excluded.established_at`,
				r.invObserver, r.invSubject, wasVisible,
				r.inv.PreviousState.String(), r.inv.EstablishedState.String(),
				r.inv.EstablishedAt.UTC().Format(time.RFC3339Nano),
			)
		case reqClearInvSubject:
			_, err = s.db.Exec(`DELETE FROM invisibility WHERE subject_id = ?`, r.invSubject)
		case reqPutOvr:
			active := 0
			if r.ovr.Active {
				active = 1
			}
			_, err = s.db.Exec(
				`INSERT INTO overrides (anchor_id, direction, id, observer_id, target_id, state, active)
				 VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(anchor_id, direction) DO UPDATE SET
				   id=excluded.id,
				   observer_id=excluded.observer_id,
				   target_id=excluded.target_id,
				   state=excluded.state,
				   active=excluded.active`,
				r.ovrAnchor, string(r.ovrDir), r.ovr.ID, r.ovr.ObserverID,
				r.ovr.TargetID, r.ovr.State.String(), active,
			)
		case reqDelOvr:
			_, err = s.db.Exec(`DELETE FROM overrides WHERE anchor_id = ? AND direction = ?`, r.ovrAnchor, string(r.ovrDir))
		case reqClearOvr:
			_, err = s.db.Exec(`DELETE FROM overrides`)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "flagdb: write failed: %v\n", err)
		}
	}
}

var _ vision.FlagStore = (*SQLiteFlags)(nil)

// Package journal persists host deliveries and program snapshots to sqlite.
//
// Request and reply payloads are stored framed; snapshots are stored
// zstd-compressed. One connection serves all writes.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/host"
	"github.com/danmuck/tamactl/internal/protocol/frame"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

var (
	ErrNoSnapshot = errors.New("journal: no snapshot")
	ErrClosed     = errors.New("journal: closed")
)

// Journal implements host.Journal and host.Snapshotter.
type Journal struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder

	mu     sync.Mutex
	closed bool
}

var (
	_ host.Journal     = (*Journal)(nil)
	_ host.Snapshotter = (*Journal)(nil)
)

// Entry is one stored delivery.
type Entry struct {
	Seq       int64  `json:"seq"`
	Block     uint64 `json:"block"`
	MessageID string `json:"message_id"`
	Kind      string `json:"kind"`
	Source    string `json:"source"`
	Dest      string `json:"dest"`
	Request   []byte `json:"request"`
	Reply     []byte `json:"reply,omitempty"`
	Outcome   string `json:"outcome"`
	Err       string `json:"error,omitempty"`
}

// Snapshot is one decompressed program state.
type Snapshot struct {
	Block   uint64
	Program actor.ID
	State   []byte
}

func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal: empty db path")
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
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, err
	}
	log.Info().Msgf("journal.Open path=%q", path)
	return &Journal{db: db, enc: enc, dec: dec}, nil
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
		`CREATE TABLE IF NOT EXISTS dispatches (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			block INTEGER NOT NULL,
			message_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			source TEXT NOT NULL,
			dest TEXT NOT NULL,
			request BLOB,
			reply BLOB,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS dispatches_dest ON dispatches(dest, seq);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			block INTEGER NOT NULL,
			program TEXT NOT NULL,
			raw_size INTEGER NOT NULL,
			state BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS snapshots_program ON snapshots(program, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) live() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	return nil
}

func (j *Journal) Append(ctx context.Context, rec host.Record) error {
	if err := j.live(); err != nil {
		return err
	}
	request, reply, err := frames(rec)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO dispatches (block, message_id, kind, source, dest, request, reply, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(rec.Block), rec.MessageID.String(), rec.Kind, rec.Source.String(), rec.Dest.String(),
		request, reply, rec.Outcome, rec.Err,
	)
	return err
}

// frames wraps the request and reply of rec for storage.
func frames(rec host.Record) ([]byte, []byte, error) {
	msgType := frame.TypeHandle
	switch rec.Kind {
	case host.KindInit:
		msgType = frame.TypeInit
	case host.KindSignal:
		msgType = frame.TypeSignal
	}
	request, err := frame.Marshal(frame.Frame{
		Header:  frame.Header{MessageID: rec.MessageID.Uint64(), MessageType: msgType},
		Auth:    rec.Source[:],
		Payload: rec.Payload,
	})
	if err != nil {
		return nil, nil, err
	}
	if rec.Reply == nil && rec.Outcome == host.OutcomeOK {
		return request, nil, nil
	}
	flags := frame.FlagIsReply
	payload := rec.Reply
	if rec.Outcome != host.OutcomeOK {
		flags |= frame.FlagIsError
		payload = []byte(rec.Err)
	}
	reply, err := frame.Marshal(frame.Frame{
		Header:  frame.Header{MessageID: rec.MessageID.Uint64(), MessageType: frame.TypeReply, Flags: flags},
		Payload: payload,
	})
	if err != nil {
		return nil, nil, err
	}
	return request, reply, nil
}

func (j *Journal) SaveSnapshot(ctx context.Context, block uint64, program actor.ID, state []byte) error {
	if err := j.live(); err != nil {
		return err
	}
	compressed := j.enc.EncodeAll(state, nil)
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO snapshots (block, program, raw_size, state) VALUES (?, ?, ?, ?)`,
		int64(block), program.String(), len(state), compressed,
	)
	return err
}

// Latest returns the newest snapshot of program.
func (j *Journal) Latest(ctx context.Context, program actor.ID) (Snapshot, error) {
	if err := j.live(); err != nil {
		return Snapshot{}, err
	}
	var block int64
	var compressed []byte
	err := j.db.QueryRowContext(ctx,
		`SELECT block, state FROM snapshots WHERE program = ? ORDER BY seq DESC LIMIT 1`,
		program.String(),
	).Scan(&block, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoSnapshot, program.Short())
	}
	if err != nil {
		return Snapshot{}, err
	}
	state, err := j.dec.DecodeAll(compressed, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("journal: decompress snapshot: %w", err)
	}
	return Snapshot{Block: uint64(block), Program: program, State: state}, nil
}

// Recent returns up to limit deliveries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if err := j.live(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, block, message_id, kind, source, dest, request, reply, outcome, error
		 FROM dispatches ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, min(limit, 64))
	for rows.Next() {
		var e Entry
		var block int64
		if err := rows.Scan(&e.Seq, &block, &e.MessageID, &e.Kind, &e.Source, &e.Dest, &e.Request, &e.Reply, &e.Outcome, &e.Err); err != nil {
			return nil, err
		}
		e.Block = uint64(block)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()

	j.dec.Close()
	if err := j.enc.Close(); err != nil {
		_ = j.db.Close()
		return err
	}
	return j.db.Close()
}

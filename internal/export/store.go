// Package export writes a decoded world save into a SQLite index so rooms,
// doors and agents can be queried with plain SQL.
package export

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/albia/internal/logger"
	"github.com/Faultbox/albia/pkg/formats"
)

//go:embed schema.sql
var schema string

// ErrNotConfigured is returned by methods called on a nil or closed store.
var ErrNotConfigured = errors.New("export store is not configured")

// directionNames labels the door arrays in storage order.
var directionNames = [...]string{
	formats.DoorLeft:  "left",
	formats.DoorRight: "right",
	formats.DoorUp:    "up",
	formats.DoorDown:  "down",
}

// Agent kinds stored in the agents table.
const (
	KindObject  = "object"
	KindScenery = "scenery"
)

// Options tunes the export.
type Options struct {
	BusyTimeout     time.Duration
	IncludeBacteria bool // write non-empty bacteria slots
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		BusyTimeout:     5 * time.Second,
		IncludeBacteria: true,
	}
}

// Summary counts the rows written by one export.
type Summary struct {
	Rooms    int
	Doors    int
	Bacteria int
	Agents   int
	Scripts  int
}

// Store is a SQLite export target.
type Store struct {
	db   *sql.DB
	opts Options
}

// Open opens or creates the SQLite file at path and ensures the schema.
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("export path is required")
	}
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		filepath.Clean(path), opts.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, multierr.Append(fmt.Errorf("ping sqlite db: %w", err), db.Close())
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, multierr.Append(fmt.Errorf("apply schema: %w", err), db.Close())
	}
	return &Store{db: db, opts: opts}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// WriteDocument replaces the store contents with doc in one transaction.
// source is recorded as the origin of the data, usually the save file path.
func (s *Store) WriteDocument(ctx context.Context, source string, doc *formats.SFC) (_ Summary, err error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	if s == nil || s.db == nil {
		return Summary{}, ErrNotConfigured
	}
	if doc == nil {
		return Summary{}, fmt.Errorf("document is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("begin export: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	w := &writer{ctx: ctx, tx: tx, opts: s.opts}
	if err = w.clearTables(); err != nil {
		return Summary{}, err
	}
	if err = w.world(source, doc); err != nil {
		return Summary{}, err
	}
	for i := range doc.Map.Rooms {
		if err = w.room(int64(i+1), &doc.Map.Rooms[i]); err != nil {
			return Summary{}, fmt.Errorf("export room %d: %w", doc.Map.Rooms[i].ID, err)
		}
	}

	seq := int64(0)
	for i := range doc.Objects {
		seq++
		o := &doc.Objects[i]
		if err = w.agent(seq, KindObject, &o.ObjectBase, nil); err != nil {
			return Summary{}, fmt.Errorf("export object %d: %w", o.ID, err)
		}
	}
	for i := range doc.Scenery {
		seq++
		sc := &doc.Scenery[i]
		if err = w.agent(seq, KindScenery, &sc.ObjectBase, &sc.Entity.EntityState); err != nil {
			return Summary{}, fmt.Errorf("export scenery %d: %w", sc.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("commit export: %w", err)
	}

	logger.Debug("export written",
		zap.String("source", source),
		zap.Int("rooms", w.sum.Rooms),
		zap.Int("doors", w.sum.Doors),
		zap.Int("agents", w.sum.Agents),
	)
	return w.sum, nil
}

// writer carries the transaction through one export.
type writer struct {
	ctx  context.Context
	tx   *sql.Tx
	opts Options
	sum  Summary
}

func (w *writer) exec(query string, args ...any) error {
	_, err := w.tx.ExecContext(w.ctx, query, args...)
	return err
}

func (w *writer) clearTables() error {
	// Children before parents.
	for _, table := range []string{"scripts", "agents", "bacteria", "surface_points", "doors", "rooms", "world"} {
		if err := w.exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (w *writer) world(source string, doc *formats.SFC) error {
	f := doc.Map.Flags
	err := w.exec(
		`INSERT INTO world (
		   id, source, wrappable, time_of_day, day_in_year, year,
		   background, trailing_bytes, exported_at
		 ) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)`,
		source,
		f.IsWrappable(),
		int64(f.TimeOfDay),
		int64(f.DayInYear),
		int64(f.Year),
		doc.Map.Gallery.FSP,
		doc.Trailing,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert world: %w", err)
	}
	return nil
}

func (w *writer) room(seq int64, r *formats.Room) error {
	err := w.exec(
		`INSERT INTO rooms (
		   seq, room_id, room_type, left_edge, top_edge, right_edge, bottom_edge,
		   temperature, pressure, light, radiation, music_track, drop_status
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seq,
		int64(r.ID),
		r.Type.String(),
		int64(r.Rect.Left),
		int64(r.Rect.Top),
		int64(r.Rect.Right),
		int64(r.Rect.Bottom),
		int64(r.Temperature),
		int64(r.Pressure),
		int64(r.Light),
		int64(r.Radiation),
		r.MusicTrack,
		r.Drop.String(),
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	w.sum.Rooms++

	for dir, doors := range r.Doors {
		for pos, d := range doors {
			err := w.exec(
				`INSERT INTO doors (room_seq, direction, position, target_room_id, amount_open)
				 VALUES (?, ?, ?, ?, ?)`,
				seq, directionNames[dir], pos, int64(d.RoomID), int64(d.AmountOpen),
			)
			if err != nil {
				return fmt.Errorf("insert door: %w", err)
			}
			w.sum.Doors++
		}
	}

	for pos, p := range r.Surface {
		err := w.exec(
			`INSERT INTO surface_points (room_seq, position, x, y) VALUES (?, ?, ?, ?)`,
			seq, pos, int64(p.X), int64(p.Y),
		)
		if err != nil {
			return fmt.Errorf("insert surface point: %w", err)
		}
	}

	if !w.opts.IncludeBacteria {
		return nil
	}
	for slot, b := range r.Bacteria {
		if b.State == formats.BacteriaNotPresent {
			continue
		}
		err := w.exec(
			`INSERT INTO bacteria (room_seq, slot, state, antigen, fatal_level, infect_level)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			seq, slot, b.State.String(), int64(b.Antigen), int64(b.FatalLevel), int64(b.InfectLevel),
		)
		if err != nil {
			return fmt.Errorf("insert bacteria: %w", err)
		}
		w.sum.Bacteria++
	}
	return nil
}

// agent writes one object or scenery row. state is nil for objects, which
// carry no drawable position of their own.
func (w *writer) agent(seq int64, kind string, o *formats.ObjectBase, state *formats.EntityState) error {
	var x, y sql.NullInt64
	var anim sql.NullString
	if state != nil {
		x = sql.NullInt64{Int64: int64(state.WorldX), Valid: true}
		y = sql.NullInt64{Int64: int64(state.WorldY), Valid: true}
		anim = sql.NullString{String: state.Animation, Valid: state.Animating()}
	}

	err := w.exec(
		`INSERT INTO agents (
		   seq, kind, agent_id, family, genus, species, movement, attributes,
		   current_room, sprite_file, world_x, world_y, animation
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seq,
		kind,
		int64(o.ID),
		int64(o.Classifier.Family()),
		int64(o.Classifier.Genus()),
		int64(o.Classifier.SpeciesEvent),
		o.Movement.String(),
		int64(o.Attributes.Byte()),
		int64(o.CurrentRoom),
		o.Gallery.FSP,
		x,
		y,
		anim,
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	w.sum.Agents++

	for pos, sc := range o.Scripts {
		err := w.exec(
			`INSERT INTO scripts (agent_seq, position, family, genus, event, body)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			seq,
			pos,
			int64(sc.Classifier.Family()),
			int64(sc.Classifier.Genus()),
			int64(sc.Classifier.SpeciesEvent),
			sc.Body,
		)
		if err != nil {
			return fmt.Errorf("insert script: %w", err)
		}
		w.sum.Scripts++
	}
	return nil
}

// Counts returns the number of rows currently stored per table.
func (s *Store) Counts(ctx context.Context) (Summary, error) {
	if s == nil || s.db == nil {
		return Summary{}, ErrNotConfigured
	}
	var sum Summary
	targets := []struct {
		table string
		dst   *int
	}{
		{"rooms", &sum.Rooms},
		{"doors", &sum.Doors},
		{"bacteria", &sum.Bacteria},
		{"agents", &sum.Agents},
		{"scripts", &sum.Scripts},
	}
	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return Summary{}, fmt.Errorf("count %s: %w", t.table, err)
		}
	}
	return sum, nil
}

// DoorTargets returns the target room ids of every door owned by the room
// with the given id, in storage order.
func (s *Store) DoorTargets(ctx context.Context, roomID uint32) (targets []uint32, err error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.target_room_id
		   FROM doors d
		   JOIN rooms r ON r.seq = d.room_seq
		  WHERE r.room_id = ?
		  ORDER BY r.seq,
		           CASE d.direction WHEN 'left' THEN 0 WHEN 'right' THEN 1 WHEN 'up' THEN 2 ELSE 3 END,
		           d.position`,
		int64(roomID),
	)
	if err != nil {
		return nil, fmt.Errorf("query doors: %w", err)
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan door: %w", err)
		}
		targets = append(targets, uint32(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate doors: %w", err)
	}
	return targets, nil
}

// Source returns the origin recorded by the last export, or "" if the store
// is empty.
func (s *Store) Source(ctx context.Context) (string, error) {
	if s == nil || s.db == nil {
		return "", ErrNotConfigured
	}
	var source string
	err := s.db.QueryRowContext(ctx, "SELECT source FROM world WHERE id = 1").Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query world: %w", err)
	}
	return source, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/albia/internal/assets"
	"github.com/Faultbox/albia/internal/config"
	"github.com/Faultbox/albia/internal/export"
	"github.com/Faultbox/albia/internal/logger"
	"github.com/Faultbox/albia/pkg/formats"
)

// errUsage marks an argument error; the usage line has already been printed.
var errUsage = errors.New("invalid arguments")

func usage(line string) error {
	fmt.Fprintln(os.Stderr, "Usage: "+line)
	return errUsage
}

// loadSFC decodes a world save and logs where decoding stopped if it fails.
func loadSFC(cfg *config.Config, path string) (*formats.SFC, error) {
	start := time.Now()
	doc, err := formats.ParseSFCFile(path)
	if err != nil {
		var se *formats.SFCError
		if errors.As(err, &se) {
			logger.Error("decode failed",
				zap.String("file", path),
				zap.Int("offset", se.Offset),
				zap.String("record", se.RecordPath()),
				zap.Error(se.Err),
			)
		}
		return nil, err
	}

	if doc.Trailing > 0 {
		if cfg.Data.StrictTrailing {
			return nil, fmt.Errorf("%s: %d bytes left after the scenery list", path, doc.Trailing)
		}
		logger.Warn("trailing bytes after scenery", zap.String("file", path), zap.Int("bytes", doc.Trailing))
	}

	logger.Debug("decoded world",
		zap.String("file", path),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("rooms", len(doc.Map.Rooms)),
		zap.Int("objects", len(doc.Objects)),
		zap.Int("scenery", len(doc.Scenery)),
	)
	return doc, nil
}

// emit writes v as YAML when the yaml format is selected, otherwise it runs text.
func emit(cfg *config.Config, w io.Writer, v any, text func()) error {
	if cfg.Output.Format != "yaml" {
		text()
		return nil
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

type worldInfo struct {
	File       string         `yaml:"file"`
	Wrappable  bool           `yaml:"wrappable"`
	TimeOfDay  uint32         `yaml:"time_of_day"`
	DayInYear  uint32         `yaml:"day_in_year"`
	Year       uint32         `yaml:"year"`
	Background string         `yaml:"background"`
	Rooms      int            `yaml:"rooms"`
	Doors      int            `yaml:"doors"`
	Dangling   int            `yaml:"dangling_doors"`
	Objects    int            `yaml:"objects"`
	Scenery    int            `yaml:"scenery"`
	Trailing   int            `yaml:"trailing_bytes"`
	RoomTypes  map[string]int `yaml:"room_types"`
	Bounds     [4]float32     `yaml:"bounds"` // min x, min y, max x, max y
}

func summarize(path string, doc *formats.SFC) worldInfo {
	info := worldInfo{
		File:       path,
		Wrappable:  doc.Map.Flags.IsWrappable(),
		TimeOfDay:  doc.Map.Flags.TimeOfDay,
		DayInYear:  doc.Map.Flags.DayInYear,
		Year:       doc.Map.Flags.Year,
		Background: doc.Map.Gallery.FSP,
		Rooms:      len(doc.Map.Rooms),
		Objects:    len(doc.Objects),
		Scenery:    len(doc.Scenery),
		Trailing:   doc.Trailing,
		RoomTypes:  make(map[string]int),
	}
	for i := range doc.Map.Rooms {
		info.Doors += doc.Map.Rooms[i].DoorCount()
	}
	for _, doors := range doc.DanglingDoors() {
		info.Dangling += len(doors)
	}
	for t, n := range doc.CountByType() {
		info.RoomTypes[t.String()] = n
	}
	b := doc.Bounds()
	info.Bounds = [4]float32{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y}
	return info
}

func cmdInfo(cfg *config.Config, args []string, w io.Writer) error {
	if len(args) < 1 {
		return usage("sfctool info <file.sfc>")
	}

	doc, err := loadSFC(cfg, args[0])
	if err != nil {
		return err
	}
	info := summarize(args[0], doc)

	return emit(cfg, w, info, func() {
		fmt.Fprintf(w, "World:      %s\n", info.File)
		fmt.Fprintf(w, "Wrappable:  %v\n", info.Wrappable)
		fmt.Fprintf(w, "Clock:      year %d, day %d, time %d\n", info.Year, info.DayInYear, info.TimeOfDay)
		fmt.Fprintf(w, "Background: %s\n", info.Background)
		fmt.Fprintf(w, "Rooms:      %d (%d doors, %d dangling)\n", info.Rooms, info.Doors, info.Dangling)
		fmt.Fprintf(w, "Objects:    %d\n", info.Objects)
		fmt.Fprintf(w, "Scenery:    %d\n", info.Scenery)
		fmt.Fprintf(w, "Bounds:     (%.0f, %.0f) - (%.0f, %.0f)\n", info.Bounds[0], info.Bounds[1], info.Bounds[2], info.Bounds[3])
		if info.Trailing > 0 {
			fmt.Fprintf(w, "Trailing:   %d bytes\n", info.Trailing)
		}

		if len(info.RoomTypes) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Rooms by type:")
			types := make([]string, 0, len(info.RoomTypes))
			for t := range info.RoomTypes {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(w, "  %-12s %d\n", t, info.RoomTypes[t])
			}
		}
	})
}

type roomRow struct {
	ID        uint32     `yaml:"id"`
	Type      string     `yaml:"type"`
	Render    [4]float32 `yaml:"render_rect"`
	Doors     [4]int     `yaml:"doors"` // left, right, up, down
	Neighbors []uint32   `yaml:"neighbors,flow"`
	Music     string     `yaml:"music,omitempty"`
	Drop      string     `yaml:"drop"`
}

func roomRows(doc *formats.SFC, limit int) []roomRow {
	rooms := doc.Map.Rooms
	if limit > 0 && limit < len(rooms) {
		rooms = rooms[:limit]
	}
	rows := make([]roomRow, 0, len(rooms))
	for i := range rooms {
		r := &rooms[i]
		rr := r.RenderRect()
		row := roomRow{
			ID:        r.ID,
			Type:      r.Type.String(),
			Render:    [4]float32{rr.Min.X, rr.Min.Y, rr.Max.X, rr.Max.Y},
			Neighbors: r.Neighbors(),
			Music:     r.MusicTrack,
			Drop:      r.Drop.String(),
		}
		for dir, doors := range r.Doors {
			row.Doors[dir] = len(doors)
		}
		rows = append(rows, row)
	}
	return rows
}

func cmdRooms(cfg *config.Config, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("rooms", flag.ContinueOnError)
	limit := fs.Int("n", cfg.Output.MaxRooms, "Limit output to N rooms (0 = all)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if fs.NArg() < 1 {
		return usage("sfctool rooms [-n N] <file.sfc>")
	}

	doc, err := loadSFC(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	rows := roomRows(doc, *limit)

	return emit(cfg, w, rows, func() {
		fmt.Fprintf(w, "%-6s %-11s %-32s %-11s %s\n", "ID", "TYPE", "RENDER RECT", "DOORS LRUD", "MUSIC")
		for _, r := range rows {
			rect := fmt.Sprintf("(%.0f,%.0f)-(%.0f,%.0f)", r.Render[0], r.Render[1], r.Render[2], r.Render[3])
			doors := fmt.Sprintf("%d/%d/%d/%d", r.Doors[0], r.Doors[1], r.Doors[2], r.Doors[3])
			fmt.Fprintf(w, "%-6d %-11s %-32s %-11s %s\n", r.ID, r.Type, rect, doors, r.Music)
		}
		if len(rows) < len(doc.Map.Rooms) {
			fmt.Fprintf(os.Stderr, "\n(showing first %d of %d rooms, use -n 0 for all)\n", len(rows), len(doc.Map.Rooms))
		}
	})
}

type agentRow struct {
	Kind       string `yaml:"kind"`
	ID         int32  `yaml:"id"`
	Classifier string `yaml:"classifier"`
	Movement   string `yaml:"movement"`
	Attributes string `yaml:"attributes"`
	Sprite     string `yaml:"sprite"`
	Scripts    int    `yaml:"scripts"`
}

// attributeLetters renders the attribute bits in bit order, "-" for clear bits.
func attributeLetters(a formats.Attributes) string {
	const letters = "cmaoifbg"
	b := a.Byte()
	var sb strings.Builder
	for i := 0; i < len(letters); i++ {
		if b&(1<<i) != 0 {
			sb.WriteByte(letters[i])
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

func agentRows(doc *formats.SFC) []agentRow {
	rows := make([]agentRow, 0, len(doc.Objects)+len(doc.Scenery))
	row := func(kind string, o *formats.ObjectBase) agentRow {
		return agentRow{
			Kind:       kind,
			ID:         o.ID,
			Classifier: o.Classifier.String(),
			Movement:   o.Movement.String(),
			Attributes: attributeLetters(o.Attributes),
			Sprite:     o.Gallery.FSP,
			Scripts:    len(o.Scripts),
		}
	}
	for i := range doc.Objects {
		rows = append(rows, row(export.KindObject, &doc.Objects[i].ObjectBase))
	}
	for i := range doc.Scenery {
		rows = append(rows, row(export.KindScenery, &doc.Scenery[i].ObjectBase))
	}
	return rows
}

func cmdObjects(cfg *config.Config, args []string, w io.Writer) error {
	if len(args) < 1 {
		return usage("sfctool objects <file.sfc>")
	}

	doc, err := loadSFC(cfg, args[0])
	if err != nil {
		return err
	}
	rows := agentRows(doc)

	return emit(cfg, w, rows, func() {
		fmt.Fprintf(w, "%-8s %-8s %-14s %-12s %-9s %-6s %s\n", "KIND", "ID", "CLASSIFIER", "MOVEMENT", "ATTRS", "SPRITE", "SCRIPTS")
		for _, r := range rows {
			fmt.Fprintf(w, "%-8s %-8d %-14s %-12s %-9s %-6s %d\n", r.Kind, r.ID, r.Classifier, r.Movement, r.Attributes, r.Sprite, r.Scripts)
		}
	})
}

func cmdDump(cfg *config.Config, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	mapOnly := fs.Bool("map", false, "Dump only the map record")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if fs.NArg() < 1 {
		return usage("sfctool dump [-map] <file.sfc>")
	}

	doc, err := loadSFC(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	var v any = doc
	if *mapOnly {
		v = doc.Map
	}

	// Always YAML, whatever the configured format.
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func cmdExport(ctx context.Context, cfg *config.Config, args []string, w io.Writer) error {
	if len(args) < 2 {
		return usage("sfctool export <file.sfc> <out.db>")
	}

	doc, err := loadSFC(cfg, args[0])
	if err != nil {
		return err
	}

	store, err := export.Open(args[1], export.Options{
		BusyTimeout:     cfg.Export.BusyTimeout,
		IncludeBacteria: cfg.Export.IncludeBacteria,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := store.WriteDocument(ctx, args[0], doc)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Exported: %s\n", args[1])
	fmt.Fprintf(w, "  rooms:    %d\n", sum.Rooms)
	fmt.Fprintf(w, "  doors:    %d\n", sum.Doors)
	fmt.Fprintf(w, "  bacteria: %d\n", sum.Bacteria)
	fmt.Fprintf(w, "  agents:   %d\n", sum.Agents)
	fmt.Fprintf(w, "  scripts:  %d\n", sum.Scripts)
	return store.Close()
}

// newAssets builds a sprite manager over the configured directories.
// Missing directories are skipped with a warning.
func newAssets(cfg *config.Config) *assets.Manager {
	m := assets.NewManager()
	for _, dir := range cfg.Data.SpritePaths {
		if err := m.AddDir(dir); err != nil {
			logger.Warn("skipping sprite dir", zap.String("dir", dir), zap.Error(err))
		}
	}
	return m
}

// writeBMP encodes img to path.
func writeBMP(path string, img formats.S16Image) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := bmp.Encode(out, img.ToNRGBA()); err != nil {
		out.Close()
		return fmt.Errorf("encoding bmp: %w", err)
	}
	return out.Close()
}

func cmdSprite(cfg *config.Config, args []string, w io.Writer) error {
	if len(args) < 3 {
		return usage("sfctool sprite <file.s16|stem> <index> <out.bmp>")
	}

	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid image index %q: %w", args[1], err)
	}

	m := newAssets(cfg)
	defer m.Close()

	sheet, err := m.Load(args[0])
	if err != nil {
		return err
	}
	img, err := sheet.Image(index)
	if err != nil {
		return err
	}
	if err := writeBMP(args[2], img); err != nil {
		return err
	}

	logger.Debug("sprite written", zap.String("sheet", args[0]), zap.Int("index", index), zap.String("format", sheet.Format.String()))
	fmt.Fprintf(w, "Wrote: %s (%dx%d, %s)\n", args[2], img.Width, img.Height, sheet.Format)
	return nil
}

func cmdBackground(cfg *config.Config, args []string, w io.Writer) error {
	if len(args) < 3 {
		return usage("sfctool background <file.sfc> <index> <out.bmp>")
	}

	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid image index %q: %w", args[1], err)
	}

	doc, err := loadSFC(cfg, args[0])
	if err != nil {
		return err
	}

	m := newAssets(cfg)
	defer m.Close()

	img, err := m.GalleryImage(doc.Map.Gallery, index)
	if err != nil {
		return err
	}
	if err := writeBMP(args[2], img); err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote: %s (%s image %d, %dx%d)\n", args[2], doc.Map.Gallery.FSP, index, img.Width, img.Height)
	return nil
}

package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/spheresim/internal/config"
	"github.com/san-kum/spheresim/internal/experiment"
	"github.com/san-kum/spheresim/internal/physics"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
	objectsFile  = "objects.csv"
)

var (
	frameHeader = []string{
		"frame", "objects", "candidates", "collisions", "resolved", "degenerate",
		"tree_nodes", "tree_depth",
		"broad_phase_ns", "detection_ns", "resolution_ns", "integration_ns", "total_ns",
	}
	objectHeader = []string{"x", "y", "z", "vx", "vy", "vz", "r", "g", "b", "a", "radius"}
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scenario  string             `json:"scenario"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      uint64             `json:"seed"`
	Dt        float64            `json:"dt"`
	Frames    int                `json:"frames"`
	Workers   int                `json:"workers"`
	Objects   int                `json:"objects"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes a run directory holding the metadata, one row per frame and
// the final snapshot.
func (s *Store) Save(cfg *config.Config, result *experiment.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", cfg.Scenario, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Scenario:  cfg.Scenario,
		Timestamp: now,
		Seed:      cfg.Seed,
		Dt:        cfg.Dt,
		Frames:    len(result.Frames),
		Workers:   cfg.Workers,
		Objects:   len(result.Final),
		Metrics:   result.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	frameRows := make([][]string, 0, len(result.Frames))
	for _, f := range result.Frames {
		frameRows = append(frameRows, frameRecord(f))
	}
	if err := writeCSV(filepath.Join(runDir, framesFile), frameHeader, frameRows); err != nil {
		return "", err
	}

	objectRows := make([][]string, 0, len(result.Final))
	for _, o := range result.Final {
		objectRows = append(objectRows, objectRecord(o))
	}
	if err := writeCSV(filepath.Join(runDir, objectsFile), objectHeader, objectRows); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([]physics.FrameStats, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}

	frames := make([]physics.FrameStats, 0, len(records))
	for i, record := range records {
		f, err := parseFrame(record)
		if err != nil {
			return nil, fmt.Errorf("run %s: frames row %d: %w", runID, i+1, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func (s *Store) LoadObjects(runID string) ([]physics.Object, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, objectsFile))
	if err != nil {
		return nil, err
	}

	objects := make([]physics.Object, 0, len(records))
	for i, record := range records {
		o, err := parseObject(record)
		if err != nil {
			return nil, fmt.Errorf("run %s: objects row %d: %w", runID, i+1, err)
		}
		objects = append(objects, o)
	}
	return objects, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

// readCSV returns the data rows without the header.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func frameRecord(f physics.FrameStats) []string {
	return []string{
		strconv.FormatUint(f.Frame, 10),
		strconv.Itoa(f.Objects),
		strconv.Itoa(f.Candidates),
		strconv.Itoa(f.Collisions),
		strconv.Itoa(f.Resolved),
		strconv.Itoa(f.Degenerate),
		strconv.Itoa(f.TreeNodes),
		strconv.Itoa(f.TreeDepth),
		strconv.FormatInt(int64(f.BroadPhase), 10),
		strconv.FormatInt(int64(f.Detection), 10),
		strconv.FormatInt(int64(f.Resolution), 10),
		strconv.FormatInt(int64(f.Integration), 10),
		strconv.FormatInt(int64(f.Total), 10),
	}
}

func parseFrame(record []string) (physics.FrameStats, error) {
	if len(record) != len(frameHeader) {
		return physics.FrameStats{}, fmt.Errorf("expected %d fields, got %d", len(frameHeader), len(record))
	}
	var f physics.FrameStats
	var err error
	if f.Frame, err = strconv.ParseUint(record[0], 10, 64); err != nil {
		return f, err
	}
	ints := []*int{&f.Objects, &f.Candidates, &f.Collisions, &f.Resolved, &f.Degenerate, &f.TreeNodes, &f.TreeDepth}
	for i, dst := range ints {
		if *dst, err = strconv.Atoi(record[1+i]); err != nil {
			return f, err
		}
	}
	durations := []*time.Duration{&f.BroadPhase, &f.Detection, &f.Resolution, &f.Integration, &f.Total}
	for i, dst := range durations {
		ns, err := strconv.ParseInt(record[1+len(ints)+i], 10, 64)
		if err != nil {
			return f, err
		}
		*dst = time.Duration(ns)
	}
	return f, nil
}

func objectRecord(o physics.Object) []string {
	row := make([]string, 0, len(objectHeader))
	for _, v := range o.Position {
		row = append(row, formatFloat(v))
	}
	for _, v := range o.Velocity {
		row = append(row, formatFloat(v))
	}
	for _, v := range o.Color {
		row = append(row, formatFloat(v))
	}
	return append(row, formatFloat(o.Radius))
}

func parseObject(record []string) (physics.Object, error) {
	if len(record) != len(objectHeader) {
		return physics.Object{}, fmt.Errorf("expected %d fields, got %d", len(objectHeader), len(record))
	}
	vals := make([]float64, len(record))
	for i, field := range record {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return physics.Object{}, err
		}
		vals[i] = v
	}
	return physics.Object{
		Position: mgl64.Vec3{vals[0], vals[1], vals[2]},
		Velocity: mgl64.Vec3{vals[3], vals[4], vals[5]},
		Color:    mgl64.Vec4{vals[6], vals[7], vals[8], vals[9]},
		Radius:   vals[10],
	}, nil
}

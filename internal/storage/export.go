package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/san-kum/spheresim/internal/physics"
)

type ExportData struct {
	Run     RunMetadata          `json:"run"`
	Frames  []physics.FrameStats `json:"frames"`
	Objects []ExportObject       `json:"objects"`
}

type ExportObject struct {
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`
	Color    [4]float64 `json:"color"`
	Radius   float64    `json:"radius"`
}

// ExportJSON writes a whole run as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}
	objects, err := s.LoadObjects(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:     *meta,
		Frames:  frames,
		Objects: make([]ExportObject, len(objects)),
	}
	for i, o := range objects {
		data.Objects[i] = ExportObject{
			Position: o.Position,
			Velocity: o.Velocity,
			Color:    o.Color,
			Radius:   o.Radius,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportFramesCSV copies the per-frame stats of a run to w.
func (s *Store) ExportFramesCSV(w io.Writer, runID string) error {
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(frameHeader); err != nil {
		return err
	}
	for _, f := range frames {
		if err := cw.Write(frameRecord(f)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

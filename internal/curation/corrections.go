// Package curation tracks per-folder review bookkeeping that lives beside
// the media as plain CSV files: corrections.csv flags files that need
// rework, published.csv records what has been copied into the DAM drop
// folder. Keeping the records in the folder itself means they survive
// library moves and stay visible to other tools.
package curation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"photomedit/internal/filesystem"
)

// CorrectionsFileName is the per-folder corrections register.
const CorrectionsFileName = "corrections.csv"

var correctionsHeader = []string{"filename", "flagged_by", "notes", "flagged_at", "cleared_at"}

// Correction is one row of a folder's corrections register. A row with an
// empty ClearedAt is an active flag; cleared rows stay in the file as an
// audit trail.
type Correction struct {
	FileName  string `json:"fileName"`
	FlaggedBy string `json:"flaggedBy"`
	Notes     string `json:"notes"`
	FlaggedAt string `json:"flaggedAt"`
	ClearedAt string `json:"clearedAt,omitempty"`
}

// Active reports whether the flag has not been cleared.
func (c Correction) Active() bool {
	return c.ClearedAt == ""
}

// Tracker reads and updates corrections registers.
type Tracker struct {
	now func() time.Time
}

// NewTracker wires a tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// List returns the active corrections in a folder, in file order.
func (t *Tracker) List(folderPath string) ([]Correction, error) {
	rows, err := readCorrections(folderPath)
	if err != nil {
		return nil, err
	}
	active := make([]Correction, 0, len(rows))
	for _, c := range rows {
		if c.Active() {
			active = append(active, c)
		}
	}
	return active, nil
}

// Get returns the active correction for a file, if any.
func (t *Tracker) Get(folderPath, fileName string) (Correction, bool, error) {
	rows, err := readCorrections(folderPath)
	if err != nil {
		return Correction{}, false, err
	}
	for _, c := range rows {
		if c.FileName == fileName && c.Active() {
			return c, true, nil
		}
	}
	return Correction{}, false, nil
}

// Flag marks a file as needing correction. An existing active flag for the
// same file is updated in place.
func (t *Tracker) Flag(folderPath, fileName, flaggedBy, notes string) error {
	rows, err := readCorrections(folderPath)
	if err != nil {
		return err
	}

	stamp := t.now().UTC().Format(time.RFC3339)
	updated := false
	for i := range rows {
		if rows[i].FileName == fileName && rows[i].Active() {
			rows[i].FlaggedBy = flaggedBy
			rows[i].Notes = notes
			rows[i].FlaggedAt = stamp
			updated = true
		}
	}
	if !updated {
		rows = append(rows, Correction{
			FileName:  fileName,
			FlaggedBy: flaggedBy,
			Notes:     notes,
			FlaggedAt: stamp,
		})
	}
	return writeCorrections(folderPath, rows)
}

// Clear resolves the active flag for a file by stamping ClearedAt. The row
// is kept. Clearing a file that was never flagged is a no-op.
func (t *Tracker) Clear(folderPath, fileName string) error {
	rows, err := readCorrections(folderPath)
	if err != nil {
		return err
	}

	found := false
	stamp := t.now().UTC().Format(time.RFC3339)
	for i := range rows {
		if rows[i].FileName == fileName && rows[i].Active() {
			rows[i].ClearedAt = stamp
			found = true
		}
	}
	if !found {
		return nil
	}
	return writeCorrections(folderPath, rows)
}

func readCorrections(folderPath string) ([]Correction, error) {
	path := filepath.Join(folderPath, CorrectionsFileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(correctionsHeader)
	var rows []Correction
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if first {
			first = false
			continue
		}
		rows = append(rows, Correction{
			FileName:  record[0],
			FlaggedBy: record[1],
			Notes:     record[2],
			FlaggedAt: record[3],
			ClearedAt: record[4],
		})
	}
	return rows, nil
}

func writeCorrections(folderPath string, rows []Correction) error {
	path := filepath.Join(folderPath, CorrectionsFileName)
	return filesystem.WriteAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(correctionsHeader); err != nil {
			return err
		}
		for _, c := range rows {
			if err := cw.Write([]string{c.FileName, c.FlaggedBy, c.Notes, c.FlaggedAt, c.ClearedAt}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

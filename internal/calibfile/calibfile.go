// Package calibfile persists calibration records as human-readable JSON.
// Save and load are explicit whole-record operations: a load fully replaces
// the in-memory calibration state and a failed load leaves it untouched.
package calibfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hmdlab/headtrack/pkg/core"
)

// Save writes the record to path, pretty-printed.
func Save(path string, r *core.CalibrationRecord) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calibration record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write calibration file: %w", err)
	}
	return nil
}

// Load reads a record from path. On any failure the returned record is nil
// so the caller's in-memory state cannot be partially overwritten.
func Load(path string) (*core.CalibrationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}
	var r core.CalibrationRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode calibration record: %w", err)
	}
	return &r, nil
}

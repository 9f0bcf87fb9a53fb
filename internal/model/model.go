// Package model defines the database schema for persisted tracking sessions
// and calibration records, plus conversions from the core domain types.
package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hmdlab/headtrack/pkg/core"
)

// DatabaseModels lists every struct migrated into the schema.
var DatabaseModels = []interface{}{
	&Session{},
	&Sample{},
	&Calibration{},
}

// Session is one tracking session.
type Session struct {
	gorm.Model
	Tag       string    `json:"tag" gorm:"size:127"`
	Source    string    `json:"source" gorm:"size:32"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Sample is one pose sample row. High volume; written in batches.
type Sample struct {
	ID        uint    `json:"id" gorm:"primarykey"`
	SessionID uint    `json:"sessionId" gorm:"index:idx_samples_session_id"`
	Session   Session `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	Timestamp float64 `json:"timestamp" gorm:"index:idx_samples_timestamp"`
	PosX      float64 `json:"posX"`
	PosY      float64 `json:"posY"`
	PosZ      float64 `json:"posZ"`
	RotX      float64 `json:"rotX"`
	RotY      float64 `json:"rotY"`
	RotZ      float64 `json:"rotZ"`
	RotW      float64 `json:"rotW"`
	Valid     bool    `json:"valid"`
}

func (*Sample) TableName() string {
	return "samples"
}

// Calibration is a completed calibration record. Points and measured samples
// are kept as JSON documents; bounds are flattened for querying.
type Calibration struct {
	gorm.Model
	SessionID uint    `json:"sessionId" gorm:"index:idx_calibrations_session_id"`
	Session   Session `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	Timestamp string         `json:"timestamp" gorm:"size:64"`
	Points    datatypes.JSON `json:"points"`
	Samples   datatypes.JSON `json:"samples"`

	XMin float64 `json:"xMin"`
	XMax float64 `json:"xMax"`
	YMin float64 `json:"yMin"`
	YMax float64 `json:"yMax"`
	ZMin float64 `json:"zMin"`
	ZMax float64 `json:"zMax"`
}

func (*Calibration) TableName() string {
	return "calibrations"
}

// SampleFromCore converts a core sample into its row form.
func SampleFromCore(sessionID uint, s *core.PoseSample) Sample {
	return Sample{
		SessionID: sessionID,
		Timestamp: s.Timestamp,
		PosX:      s.Position.X,
		PosY:      s.Position.Y,
		PosZ:      s.Position.Z,
		RotX:      s.Orientation.X,
		RotY:      s.Orientation.Y,
		RotZ:      s.Orientation.Z,
		RotW:      s.Orientation.W,
		Valid:     s.Valid,
	}
}

// CalibrationFromCore converts a calibration record into its row form.
func CalibrationFromCore(sessionID uint, r *core.CalibrationRecord) (Calibration, error) {
	points, err := json.Marshal(r.Points)
	if err != nil {
		return Calibration{}, err
	}
	samples, err := json.Marshal(r.Samples)
	if err != nil {
		return Calibration{}, err
	}
	return Calibration{
		SessionID: sessionID,
		Timestamp: r.Timestamp,
		Points:    datatypes.JSON(points),
		Samples:   datatypes.JSON(samples),
		XMin:      r.Bounds.XMin,
		XMax:      r.Bounds.XMax,
		YMin:      r.Bounds.YMin,
		YMax:      r.Bounds.YMax,
		ZMin:      r.Bounds.ZMin,
		ZMax:      r.Bounds.ZMax,
	}, nil
}

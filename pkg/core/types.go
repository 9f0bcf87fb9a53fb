// Package core holds the shared domain types exchanged between the tracking
// session engine, its storage backends and the streaming feed.
package core

import "math"

// Vec3 is a 3D vector in tracking-space, meters.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Length returns the Euclidean norm of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo returns the Euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float64 {
	return v.Sub(o).Length()
}

// Quat is an orientation quaternion as reported by the pose source.
// Sources are not required to deliver unit quaternions; consumers must not
// assume normalization.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// PoseSample is one pose reading from the source. Instances are immutable
// after creation; they are appended to buffers and read, never mutated.
type PoseSample struct {
	// Timestamp is monotonic seconds, strictly non-decreasing within a session.
	Timestamp   float64 `json:"timestamp"`
	Position    Vec3    `json:"position"`
	Orientation Quat    `json:"orientation"`

	// Valid is true when the source reports the pose as tracked. Substituted
	// simulated samples always carry Valid=false so they can never be
	// mistaken for real tracking data.
	Valid bool `json:"valid"`
}

// TrackingBounds describes the expected physical tracking volume in meters.
// It is a visualization overlay only and is never enforced on sampling.
type TrackingBounds struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
	ZMin float64 `json:"z_min"`
	ZMax float64 `json:"z_max"`
}

// DefaultBounds is the tracking volume assumed before any configuration or
// calibration load.
func DefaultBounds() TrackingBounds {
	return TrackingBounds{
		XMin: -2.0, XMax: 2.0,
		YMin: -1.5, YMax: 1.5,
		ZMin: 0.5, ZMax: 3.0,
	}
}

// CalibrationPoint is one target position in the fixed calibration sequence.
type CalibrationPoint struct {
	Index  int  `json:"index"`
	Target Vec3 `json:"target"`
}

// CalibrationSample pairs a target with the pose actually measured when the
// dwell at that target was accepted.
type CalibrationSample struct {
	Point    CalibrationPoint `json:"point"`
	Measured PoseSample       `json:"measured"`
}

// CalibrationRecord is the persisted result of a completed calibration run.
// It is created on explicit save and fully replaced on load; there are no
// partial or merge semantics.
type CalibrationRecord struct {
	Timestamp string              `json:"timestamp"`
	Points    []CalibrationPoint  `json:"calibration_points"`
	Samples   []CalibrationSample `json:"samples,omitempty"`
	Bounds    TrackingBounds      `json:"tracking_bounds"`
}

// MetricsSnapshot is a fresh reduction over the sample window. It is never
// maintained incrementally.
type MetricsSnapshot struct {
	// Jitter is the RMS Euclidean distance of windowed positions from their
	// mean, in meters.
	Jitter float64 `json:"jitter"`

	// DriftRate is net displacement over the whole session buffer divided by
	// elapsed time, in meters/second.
	DriftRate float64 `json:"driftRate"`

	MeanPosition   Vec3 `json:"meanPosition"`
	PositionRange  Vec3 `json:"positionRange"`
	PositionStdDev Vec3 `json:"positionStdDev"`

	// WindowSize is the number of samples the dispersion statistics were
	// computed over.
	WindowSize int `json:"windowSize"`

	// AccuracyAvailable reports whether position/rotation accuracy could be
	// computed. Without a completed calibration there is no ground truth, so
	// this is false and no accuracy number is fabricated.
	AccuracyAvailable bool `json:"accuracyAvailable"`
}

// SessionSnapshot is the immutable per-tick state published by the session
// controller for presentation. Consumers poll it on their own schedule.
type SessionSnapshot struct {
	Timestamp   float64 `json:"timestamp"`
	Position    Vec3    `json:"position"`
	Orientation Quat    `json:"orientation"`
	Valid       bool    `json:"valid"`

	// Simulated is true when the sample was substituted because the source
	// could not produce one.
	Simulated bool `json:"simulated"`

	// FPS is the smoothed sampling rate, 1/mean of the recent frame
	// intervals. Zero until intervals have been recorded.
	FPS float64 `json:"fps"`

	SampleCount int `json:"sampleCount"`
}

// SessionInfo identifies one tracking session for storage backends.
type SessionInfo struct {
	Tag       string `json:"tag"`
	Source    string `json:"source"`
	StartTime string `json:"startTime"`
}

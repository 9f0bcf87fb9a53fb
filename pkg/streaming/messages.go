package streaming

import "encoding/json"

// Message type constants for frames pushed by the daemon.
const (
	TypeCommand             = "command"
	TypeSnapshot            = "snapshot"
	TypeMetrics             = "metrics"
	TypeCalibrationProgress = "calibration_progress"
	TypeBounds              = "bounds"
	TypeResult              = "result"
	TypeError               = "error"
)

// Command names accepted over the control channel.
const (
	CmdStartTracking     = "tracking.start"
	CmdStopTracking      = "tracking.stop"
	CmdResetSession      = "tracking.reset"
	CmdRecenter          = "tracking.recenter"
	CmdMetrics           = "metrics.compute"
	CmdStartCalibration  = "calibration.start"
	CmdAbortCalibration  = "calibration.abort"
	CmdCalibrationStatus = "calibration.status"
	CmdSaveCalibration   = "calibration.save"
	CmdLoadCalibration   = "calibration.load"
	CmdExportSamples     = "export.csv"
	CmdWriteReport       = "export.report"
	CmdSetBounds         = "bounds.set"
)

// Envelope wraps every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command is the payload of an inbound control envelope.
type Command struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// PathArgs carries a filesystem path for save/load/export commands.
type PathArgs struct {
	Path string `json:"path"`
}

// Result is the payload of a command response. Data is command-specific.
type Result struct {
	For   string          `json:"for"`
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Package export writes raw sample data as delimited text and produces the
// free-text session summary report.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/hmdlab/headtrack/internal/metrics"
	"github.com/hmdlab/headtrack/pkg/core"
)

// CSVHeader is the fixed column layout of sample exports.
const CSVHeader = "timestamp,pos_x,pos_y,pos_z,rot_x,rot_y,rot_z,rot_w,valid"

// ReportMinSamples is the minimum sample count a report needs to be
// meaningful.
const ReportMinSamples = 10

// ErrNoData is returned when there is nothing to export.
var ErrNoData = errors.New("no tracking data to export")

// WriteCSV streams the samples as delimited text with the fixed header.
func WriteCSV(w io.Writer, samples []core.PoseSample) error {
	if len(samples) == 0 {
		return ErrNoData
	}

	if _, err := fmt.Fprintln(w, CSVHeader); err != nil {
		return err
	}
	for _, s := range samples {
		_, err := fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%s,%s,%t\n",
			formatFloat(s.Timestamp),
			formatFloat(s.Position.X),
			formatFloat(s.Position.Y),
			formatFloat(s.Position.Z),
			formatFloat(s.Orientation.X),
			formatFloat(s.Orientation.Y),
			formatFloat(s.Orientation.Z),
			formatFloat(s.Orientation.W),
			s.Valid,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteCSVFile writes the samples to a file at path.
func WriteCSVFile(path string, samples []core.PoseSample) error {
	if len(samples) == 0 {
		return ErrNoData
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	return WriteCSV(f, samples)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteReport writes the free-text summary: sample count, per-axis position
// statistics and the active tracking bounds. Fails with ErrNoData below
// ReportMinSamples so a report never fabricates statistics from noise.
func WriteReport(w io.Writer, samples []core.PoseSample, bounds core.TrackingBounds, generated time.Time) error {
	if len(samples) < ReportMinSamples {
		return ErrNoData
	}

	stats := positionStats(samples)

	fmt.Fprintln(w, "Head Tracking Session Report")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Generated: %s\n", generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Total samples: %d\n", len(samples))
	fmt.Fprintf(w, "Drift rate: %.4f m/s\n", metrics.DriftRate(samples))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Position Statistics:")
	fmt.Fprintf(w, "  Mean position: [%.4f %.4f %.4f]\n", stats.mean.X, stats.mean.Y, stats.mean.Z)
	fmt.Fprintf(w, "  Position range: [%.4f %.4f %.4f]\n", stats.rng.X, stats.rng.Y, stats.rng.Z)
	fmt.Fprintf(w, "  Position std: [%.4f %.4f %.4f]\n", stats.std.X, stats.std.Y, stats.std.Z)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tracking bounds:")
	fmt.Fprintf(w, "  x_min: %g\n", bounds.XMin)
	fmt.Fprintf(w, "  x_max: %g\n", bounds.XMax)
	fmt.Fprintf(w, "  y_min: %g\n", bounds.YMin)
	fmt.Fprintf(w, "  y_max: %g\n", bounds.YMax)
	fmt.Fprintf(w, "  z_min: %g\n", bounds.ZMin)
	fmt.Fprintf(w, "  z_max: %g\n", bounds.ZMax)
	return nil
}

// WriteReportFile writes the report to a file at path.
func WriteReportFile(path string, samples []core.PoseSample, bounds core.TrackingBounds, generated time.Time) error {
	if len(samples) < ReportMinSamples {
		return ErrNoData
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return WriteReport(f, samples, bounds, generated)
}

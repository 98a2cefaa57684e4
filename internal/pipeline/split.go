package pipeline

import (
	"fmt"

	"github.com/jvasco323/TRM/internal/frame"
	"github.com/jvasco323/TRM/internal/split"
)

// Split partitions the frame into calibration and validation tables,
// whole groups on one side only.
func (r *Runner) Split() error {
	framePath, err := r.path(FrameFile)
	if err != nil {
		return err
	}
	f, err := frame.ReadCSV(framePath)
	if err != nil {
		return err
	}

	res, err := split.Partition(f, r.Study.Split.Ratio, r.Study.Split.Seed)
	if err != nil {
		return err
	}
	cal, val := res.Frames(f)

	calPath, err := r.path(CalibrationFile)
	if err != nil {
		return err
	}
	if err := cal.WriteCSV(calPath); err != nil {
		return err
	}
	valPath, err := r.path(ValidationFile)
	if err != nil {
		return err
	}
	if err := val.WriteCSV(valPath); err != nil {
		return err
	}

	calPos, calNeg := cal.ClassBalance()
	valPos, valNeg := val.ClassBalance()
	fmt.Printf("Calibration: %d rows (%d favourable, %d unfavourable)\n", cal.Len(), calPos, calNeg)
	fmt.Printf("Validation:  %d rows (%d favourable, %d unfavourable)\n", val.Len(), valPos, valNeg)
	return nil
}

package capture

import (
	"fmt"
	"math"
)

// Resource is a captured or uploaded audio ready for the submission
type Resource struct {
	Data     []byte
	MimeType string
	FileName string
	// Duration in seconds, nil if unknown
	Duration *float64
}

// FormatDuration renders seconds as mm:ss, unknown duration as --:--
func FormatDuration(d *float64) string {
	if d == nil || math.IsNaN(*d) || *d < 0 {
		return "--:--"
	}
	s := int(math.Floor(*d))
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

func seconds(v float64) *float64 {
	return &v
}

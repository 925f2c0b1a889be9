package call

import (
	"fmt"
	"time"
)

// FormatDuration renders a call length as mm:ss. Minutes keep growing past 99.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

package display

import "fmt"

const (
	kb = 1024
	mb = kb * 1024
)

// FormatFileSize renders a byte count as "N B", "x.y KB" or "x.y MB".
// Sizes of a gigabyte and above stay in MB.
func FormatFileSize(bytes int64) string {
	switch {
	case bytes < kb:
		return fmt.Sprintf("%d B", bytes)
	case bytes < mb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	}
}

package util

import (
	"fmt"

	"github.com/buger/goterm"
)

// Status is the kind of line printed during a sync.
type Status string

const (
	StatusInfo        Status = "Info"
	StatusChecked     Status = "Checked"
	StatusDownloading Status = "Downloading"
	StatusDownloaded  Status = "Downloaded"
	StatusSkipped     Status = "Skipped"
	StatusRenamed     Status = "Renamed"
	StatusRemoved     Status = "Removed"
	StatusError       Status = "Error"
)

var statusColors = map[Status]int{
	StatusInfo:        goterm.BLUE,
	StatusChecked:     goterm.GREEN,
	StatusDownloading: goterm.CYAN,
	StatusDownloaded:  goterm.GREEN,
	StatusSkipped:     goterm.YELLOW,
	StatusRenamed:     goterm.MAGENTA,
	StatusRemoved:     goterm.MAGENTA,
	StatusError:       goterm.RED,
}

// Prefix returns the coloured prefix for lines of the given status. The
// prefixes are padded so that the text following them lines up.
func Prefix(status Status) string {
	color, ok := statusColors[status]
	if !ok {
		color = goterm.BLACK
	}
	return fmt.Sprintf("[%s] ", goterm.Color(fmt.Sprintf("%-11s", status), color))
}

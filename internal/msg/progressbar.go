package msg

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
)

// ProgressBar renders a throbbing progress bar to W, updated either by
// writes (byte-counted, for dependency download/clone progress) or by
// explicit Step calls (unit-counted, one per finished job).
type ProgressBar struct {
	Total     int64
	Current   int64
	Indent    int
	Start     time.Time
	W         io.Writer
	lastPrint time.Time
	throbIdx  int
}

var throbbers = []rune{'|', '/', '-', '\\'}

func NewProgressBar(total int64, indent int, w io.Writer) *ProgressBar {
	return &ProgressBar{
		Total:     total,
		Indent:    indent,
		Start:     time.Now(),
		W:         w,
		lastPrint: time.Now(),
	}
}

// Write implements io.Writer so a ProgressBar can sit as the Progress sink
// of a git clone operation.
func (pb *ProgressBar) Write(p []byte) (int, error) {
	n := len(p)
	atomic.AddInt64(&pb.Current, int64(n))
	pb.maybePrint()
	return n, nil
}

// Step advances Current by one unit, used when tracking discrete jobs
// (compiled files) rather than bytes.
func (pb *ProgressBar) Step() {
	atomic.AddInt64(&pb.Current, 1)
	pb.maybePrint()
}

func (pb *ProgressBar) maybePrint() {
	if time.Since(pb.lastPrint) > 40*time.Millisecond {
		pb.print(false)
		pb.lastPrint = time.Now()
	}
}

func (pb *ProgressBar) print(finish bool) {
	width := 40
	percent := float64(atomic.LoadInt64(&pb.Current)) / float64(max(pb.Total, 1))
	if finish {
		percent = 1
	}

	filled := min(int(percent*float64(width)), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("-", width-filled)

	throb := throbbers[pb.throbIdx%len(throbbers)]
	pb.throbIdx++
	if finish {
		throb = ' '
	}

	if pb.Total > 0 {
		fmt.Fprintf(pb.W, "\r%s%6.f%% [%s] %c",
			strings.Repeat(" ", pb.Indent), percent*100, bar, throb)
	} else {
		fmt.Fprintf(pb.W, "\r%s%d done %c",
			strings.Repeat(" ", pb.Indent), atomic.LoadInt64(&pb.Current), throb)
	}
}

func (pb *ProgressBar) Finish() {
	pb.print(true)
	fmt.Fprintln(pb.W)
}

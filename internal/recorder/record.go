package recorder

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the local time layout of the first field of each line
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Kind tells which monitor branch produced a record
type Kind int

const (
	KindActive Kind = iota
	KindReturnIdle
)

func (k Kind) String() string {
	if k == KindReturnIdle {
		return "return"
	}
	return "active"
}

// Record is the unit handed to the recorder, one per emitted line
type Record struct {
	Timestamp     time.Time
	Kind          Kind
	IdleMs        uint64
	LoadAverage   [3]float64
	WindowClasses []string
	WindowName    string
}

// FormatLine renders r as
//
//	<timestamp> <idle_ms> <load1>,<load5>,<load15> <classes> <name>
//
// Classes are comma-joined; classes and name may be empty but their
// separators are always present.
func FormatLine(r Record) string {
	var b strings.Builder
	b.WriteString(r.Timestamp.Local().Format(TimestampLayout))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(r.IdleMs, 10))
	b.WriteByte(' ')
	for i, l := range r.LoadAverage {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(formatLoad(l))
	}
	b.WriteByte(' ')
	b.WriteString(strings.Join(r.WindowClasses, ","))
	b.WriteByte(' ')
	b.WriteString(r.WindowName)
	return b.String()
}

// formatLoad prints the shortest exact form, always with a decimal point
func formatLoad(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

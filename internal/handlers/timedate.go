package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/unklab-dev/kampusbot-go/internal/session"
)

// TimeDate answers clock and calendar questions keyed on the words
// "jam" (time) and "tanggal" (date). "jam" wins when both appear.
type TimeDate struct {
	clock func() time.Time
}

// NewTimeDate creates the time handler. A nil clock uses wall time.
func NewTimeDate(clock func() time.Time) *TimeDate {
	if clock == nil {
		clock = time.Now
	}
	return &TimeDate{clock: clock}
}

// Name implements Handler.
func (*TimeDate) Name() string { return "timedate" }

// TryHandle implements Handler.
func (t *TimeDate) TryHandle(_ context.Context, _ *session.Session, text string) (string, bool) {
	lowered := strings.ToLower(text)
	now := t.clock()

	if strings.Contains(lowered, "jam") {
		return fmt.Sprintf("Jam sekarang adalah %s, tanggal %s",
			now.Format("15:04:05"), now.Format("02-01-2006")), true
	}
	if strings.Contains(lowered, "tanggal") {
		return fmt.Sprintf("Tanggal hari ini adalah %s, pukul %s",
			now.Format("Monday, 02 January 2006"), now.Format("15:04")), true
	}
	return "", false
}

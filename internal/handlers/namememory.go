package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/unklab-dev/kampusbot-go/internal/session"
	"github.com/unklab-dev/kampusbot-go/internal/stringutil"
)

// Response templates for the name memory handler.
const (
	nameStoredTemplate  = "Nama yang bagus! Saya akan memanggil kamu %s dari sekarang."
	nameRecallTemplate  = "Nama kamu adalah %s."
	nameUnknownResponse = "Kamu belum memberitahu nama kamu. Coba katakan 'Nama saya [nama]'."
)

// Captured names are letters and inline spaces only, so trailing
// punctuation or digits never leak into the stored name.
var namePattern = regexp.MustCompile(`nama\s+saya\s+(?:adalah\s+)?([\p{L}\s]+)`)

// NameMemory stores and recalls the user's display name in the session.
// The question forms are checked first; otherwise "nama saya siapa"
// would capture "siapa" as the name.
type NameMemory struct{}

// NewNameMemory creates the name memory handler.
func NewNameMemory() *NameMemory {
	return &NameMemory{}
}

// Name implements Handler.
func (*NameMemory) Name() string { return "namememory" }

// TryHandle implements Handler.
func (*NameMemory) TryHandle(_ context.Context, sess *session.Session, text string) (string, bool) {
	lowered := strings.ToLower(text)

	if strings.Contains(lowered, "siapa nama saya") || strings.Contains(lowered, "nama saya siapa") {
		if name := sess.Name(); name != "" {
			return fmt.Sprintf(nameRecallTemplate, name), true
		}
		return nameUnknownResponse, true
	}

	if match := namePattern.FindStringSubmatch(lowered); match != nil {
		name := stringutil.TitleCase(strings.TrimSpace(match[1]))
		if name == "" {
			return "", false
		}
		sess.SetName(name)
		return fmt.Sprintf(nameStoredTemplate, name), true
	}

	return "", false
}

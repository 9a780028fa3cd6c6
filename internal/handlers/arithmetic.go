package handlers

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/unklab-dev/kampusbot-go/internal/session"
)

// Word operators mapped to symbols before pattern matching. Longer forms
// first so "ditambah" does not partially rewrite as "di+".
var operatorWords = []struct{ word, symbol string }{
	{"ditambah", "+"},
	{"tambah", "+"},
	{"plus", "+"},
	{"dikurang", "-"},
	{"kurang", "-"},
	{"minus", "-"},
	{"dikali", "*"},
	{"kali", "*"},
	{"dibagi", "/"},
	{"bagi", "/"},
	{"per", "/"},
}

// Numbers accept either . or , as decimal separator.
var arithmeticPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*([+\-*/])\s*(\d+(?:[.,]\d+)?)`)

// Arithmetic evaluates the first number-operator-number expression in
// the text. Known limitation: any text containing such a pattern is
// answered as arithmetic, including things like date ranges.
type Arithmetic struct{}

// NewArithmetic creates the arithmetic handler.
func NewArithmetic() *Arithmetic {
	return &Arithmetic{}
}

// Name implements Handler.
func (*Arithmetic) Name() string { return "arithmetic" }

// TryHandle implements Handler.
func (*Arithmetic) TryHandle(_ context.Context, _ *session.Session, text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, op := range operatorWords {
		lowered = strings.ReplaceAll(lowered, op.word, op.symbol)
	}

	match := arithmeticPattern.FindStringSubmatch(lowered)
	if match == nil {
		return "", false
	}

	a, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil {
		return "", false
	}
	b, err := strconv.ParseFloat(strings.ReplaceAll(match[3], ",", "."), 64)
	if err != nil {
		return "", false
	}

	switch match[2] {
	case "+":
		return fmt.Sprintf("%s + %s = %s", formatNumber(a), formatNumber(b), formatNumber(a+b)), true
	case "-":
		return fmt.Sprintf("%s - %s = %s", formatNumber(a), formatNumber(b), formatNumber(a-b)), true
	case "*":
		return fmt.Sprintf("%s × %s = %s", formatNumber(a), formatNumber(b), formatNumber(a*b)), true
	case "/":
		if b == 0 {
			return "Tidak bisa dibagi dengan nol!", true
		}
		return fmt.Sprintf("%s ÷ %s = %.2f", formatNumber(a), formatNumber(b), a/b), true
	}
	return "", false
}

// formatNumber renders whole values with a trailing .0 ("10.0") and
// everything else with the shortest exact representation.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

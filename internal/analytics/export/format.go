package export

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter prints numbers with locale digit grouping for human-facing
// documents. CSV output never goes through it.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a Formatter for tag; the zero tag means English.
func NewFormatter(tag language.Tag) Formatter {
	if tag == language.Und {
		tag = language.English
	}
	return Formatter{printer: message.NewPrinter(tag)}
}

// ParseLocale resolves a BCP 47 tag such as "id" or "en-US", falling back to
// English when value is empty or malformed.
func ParseLocale(value string) language.Tag {
	tag, err := language.Parse(value)
	if err != nil {
		return language.English
	}
	return tag
}

// Money prints d with two decimals.
func (f Formatter) Money(d decimal.Decimal) string {
	return f.p().Sprintf("%.2f", d.InexactFloat64())
}

// Percent prints a margin ratio as a percentage with one decimal.
func (f Formatter) Percent(d decimal.Decimal) string {
	return f.p().Sprintf("%.1f%%", d.Mul(decimal.NewFromInt(100)).InexactFloat64())
}

// Int prints n with grouping.
func (f Formatter) Int(n int64) string {
	return f.p().Sprintf("%d", n)
}

// Date prints t as an ISO date, or a dash when unknown.
func (f Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

func (f Formatter) p() *message.Printer {
	if f.printer == nil {
		return message.NewPrinter(language.English)
	}
	return f.printer
}

// plain renders a decimal for machine-readable output.
func plain(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// Package format turns raw statement values into Indonesian-locale display
// strings. Every function is pure.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ledgerview/ledgerview/internal/model"
)

// currencySymbol is the id-ID IDR prefix, separated by a no-break space.
const currencySymbol = "Rp\u00a0"

// WIB is Western Indonesia Time, the default display zone.
var WIB = time.FixedZone("WIB", 7*60*60)

var printer = message.NewPrinter(language.Indonesian)

var shortMonths = [12]string{
	"Jan", "Feb", "Mar", "Apr", "Mei", "Jun",
	"Jul", "Agu", "Sep", "Okt", "Nov", "Des",
}

// Capitalize upper-cases the first character and lower-cases the rest.
// "jOHN" -> "John"
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size == 1 {
		return s[:1] + strings.ToLower(s[1:])
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// CapitalizeWords capitalizes every space-separated word.
// "john doe" -> "John Doe"
func CapitalizeWords(s string) string {
	if s == "" {
		return ""
	}
	words := strings.Split(s, " ")
	for i, w := range words {
		words[i] = Capitalize(w)
	}
	return strings.Join(words, " ")
}

// Number renders n with id-ID digit grouping: 42000 -> "42.000".
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Currency renders amount as whole Rupiah: 1000 -> "Rp 1.000".
// Fractions round half away from zero.
func Currency(amount decimal.Decimal) string {
	whole := amount.Round(0)
	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Neg()
	}
	return sign + currencySymbol + groupDigits(whole.String())
}

// groupDigits inserts id-ID thousands separators into a string of digits.
// It works on the decimal text, so amounts beyond int64 keep every digit.
func groupDigits(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// UnixDate renders a unix-seconds timestamp as "dd MMM yyyy" in WIB.
// Zero means no date and renders as "".
func UnixDate(unix int64) string {
	return UnixDateIn(unix, WIB)
}

// UnixDateIn is UnixDate in an explicit location.
func UnixDateIn(unix int64, loc *time.Location) string {
	if unix == 0 {
		return ""
	}
	if loc == nil {
		loc = WIB
	}
	t := time.Unix(unix, 0).In(loc)
	return fmt.Sprintf("%02d %s %d", t.Day(), shortMonths[t.Month()-1], t.Year())
}

// Amount prefixes the currency string with the direction of the transaction.
func Amount(txType model.TransactionType, amount decimal.Decimal) string {
	switch {
	case txType.Is(model.TypeDebit):
		return "- " + Currency(amount)
	case txType.Is(model.TypeCredit):
		return "+ " + Currency(amount)
	default:
		return Currency(amount)
	}
}

// StatusLabel is a display label plus the CSS class that highlights it.
type StatusLabel struct {
	Text      string
	ClassName string
}

// Status maps a transaction status to its label.
func Status(status model.TransactionStatus) StatusLabel {
	switch {
	case status.Is(model.StatusSuccess):
		return StatusLabel{Text: "Success"}
	case status.Is(model.StatusFailed):
		return StatusLabel{Text: "Failed", ClassName: "status-failed"}
	case status.Is(model.StatusPending):
		return StatusLabel{Text: "Pending", ClassName: "status-pending"}
	default:
		return StatusLabel{Text: Capitalize(string(status))}
	}
}

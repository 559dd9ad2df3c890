package helpers

import (
	"errors"
	"image/color"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/params"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/gamut"
)

var ethAddressRe = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

// ShortenAddr shortens an Ethereum address for display
func ShortenAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// IsValidEthAddress checks if a string is a valid Ethereum address
func IsValidEthAddress(s string) bool {
	return ethAddressRe.MatchString(s)
}

// FormatETH formats Wei to ETH with proper decimals
func FormatETH(wei *big.Int) string {
	return FormatEther(wei) + " ETH"
}

// FormatEther renders wei as an exact decimal ether amount without
// trailing zeros ("1.5", "0.000000000000000001", "0").
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether))
	s := r.FloatString(18)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// ErrInvalidAmount is returned by ParseEther for input that is not a plain
// decimal number or carries more than 18 fractional digits.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseEther converts a decimal ether amount ("0.25") to wei.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAmount
	}
	// big.Rat also accepts fractions and exponents; only plain decimals are amounts.
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' && c != '-' {
			return nil, ErrInvalidAmount
		}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, ErrInvalidAmount
	}
	r.Mul(r, new(big.Rat).SetInt64(params.Ether))
	if !r.IsInt() {
		return nil, ErrInvalidAmount
	}
	return new(big.Int).Set(r.Num()), nil
}

// LoadedAt formats the loaded timestamp
func LoadedAt(t time.Time, loading bool) string {
	if loading {
		return "loading…"
	}
	if t.IsZero() {
		return "never"
	}
	return t.Format("15:04:05")
}

// Countdown renders the time left until deadline, or "ended" once it passed.
func Countdown(deadline, now time.Time) string {
	d := deadline.Sub(now)
	if d <= 0 {
		return "ended"
	}
	d = d.Round(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return pluralize(days, "day") + " " + pluralize(hours, "hour") + " left"
	case hours > 0:
		return pluralize(hours, "hour") + " " + pluralize(mins, "min") + " left"
	default:
		return pluralize(mins, "min") + " left"
	}
}

func pluralize(n int, unit string) string {
	s := strconv.Itoa(n) + " " + unit
	if n != 1 {
		s += "s"
	}
	return s
}

// FadeString creates a gradient colored string
func FadeString(s string, firstColor string, lastColor string) string {
	if s == "" {
		return ""
	}
	blends := gamut.Blends(lipgloss.Color(firstColor), lipgloss.Color(lastColor), utf8.RuneCountInString(s))
	return rainbow(lipgloss.NewStyle(), s, blends)
}

func rainbow(baseStyle lipgloss.Style, str string, colors []color.Color) string {
	if len(colors) == 0 {
		return str
	}
	var result strings.Builder
	i := 0
	for _, c := range str {
		col, _ := colorful.MakeColor(colors[i%len(colors)])
		result.WriteString(baseStyle.Foreground(lipgloss.Color(col.Hex())).Render(string(c)))
		i++
	}
	return result.String()
}

// Max returns the maximum of two integers
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Min returns the minimum of two integers
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

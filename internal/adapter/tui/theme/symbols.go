package theme

import (
	"os"
	"strings"
)

// SymbolSet holds the UI symbols so Unicode and ASCII sets can be swapped
// at runtime.
type SymbolSet struct {
	Success  string
	Error    string
	Warning  string
	Info     string
	Spinner  string
	ArrowR   string
	Bullet   string
	Ellipsis string
	Globe    string
	User     string
	Bot      string
}

var unicodeSymbols = SymbolSet{
	Success:  "\u2713",     // ✓
	Error:    "\u2717",     // ✗
	Warning:  "\u26A0",     // ⚠
	Info:     "\u25CF",     // ●
	Spinner:  "\u23F3",     // ⏳
	ArrowR:   "\u2192",     // →
	Bullet:   "\u2022",     // •
	Ellipsis: "\u2026",     // …
	Globe:    "\U0001F310", // 🌐
	User:     "You",
	Bot:      "Scout",
}

var asciiSymbols = SymbolSet{
	Success:  "[OK]",
	Error:    "[ERR]",
	Warning:  "[!]",
	Info:     "[i]",
	Spinner:  "[...]",
	ArrowR:   "->",
	Bullet:   "*",
	Ellipsis: "...",
	Globe:    "[web]",
	User:     "You",
	Bot:      "Scout",
}

// DetectUnicodeSupport checks whether the terminal likely supports Unicode.
// SCOUTCHAT_ASCII_SYMBOLS=1 forces ASCII regardless of locale.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("SCOUTCHAT_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}

	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if strings.Contains(val, "utf-8") || strings.Contains(val, "utf8") {
			return true
		}
	}

	return true
}

// InitSymbols sets the Symbol* variables from terminal capabilities. It runs
// from init and may be called again after the environment changes.
func InitSymbols() {
	set := unicodeSymbols
	if !DetectUnicodeSupport() {
		set = asciiSymbols
	}

	SymbolSuccess = set.Success
	SymbolError = set.Error
	SymbolWarning = set.Warning
	SymbolInfo = set.Info
	SymbolSpinner = set.Spinner
	SymbolArrowR = set.ArrowR
	SymbolBullet = set.Bullet
	SymbolEllipsis = set.Ellipsis
	SymbolGlobe = set.Globe
	SymbolUser = set.User
	SymbolBot = set.Bot
}

func init() {
	InitSymbols()
}

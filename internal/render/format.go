package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatNumber groups digits in threes with ',' ("-1,234"). Inputs under four digits are unchanged.
func FormatNumber(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

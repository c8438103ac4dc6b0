// Package translate formats user-facing vm16 messages for the host locale.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

const fallbackLocale = "en-US"

var (
	printer     *message.Printer
	printerOnce sync.Once
)

// hostPrinter builds the message printer on first use.
func hostPrinter() *message.Printer {
	printerOnce.Do(func() {
		locales, err := locale.GetLocales()
		if err != nil {
			log.Printf("vm16: locale: %v", err)
		}

		locales = append(locales, fallbackLocale)

		printer = message.NewPrinter(message.MatchLanguage(locales...))
	})

	return printer
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return hostPrinter().Sprintf(key, args...)
}

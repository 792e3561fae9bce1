package game

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
)

const PinLength = 6

// NewPin returns a random six digit join code.
func NewPin() string {
	return fmt.Sprintf("%06d", rand.IntN(1000000))
}

func ValidPin(pin string) bool {
	if len(pin) != PinLength {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizePin strips the grouping a user may type back in ("123 456").
func NormalizePin(input string) string {
	return strings.Join(strings.Fields(input), "")
}

// FormatPin groups a join code for display as "XXX XXX".
func FormatPin(pin string) string {
	if !ValidPin(pin) {
		return pin
	}
	return pin[:3] + " " + pin[3:]
}

// JoinURL is the link encoded in the session's QR code.
func JoinURL(baseURL, pin string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return base + "/join?pin=" + url.QueryEscape(pin)
}

package roster

import (
	"fmt"
	"net/url"
	"strings"
)

// Schedule is a ready-to-send shift reminder.
type Schedule struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	URI     string `json:"uri"`
}

// ScheduleText builds the reminder for e and an sms: URI that opens it in a
// messaging app.
func ScheduleText(e Employee) Schedule {
	msg := fmt.Sprintf("Your upcoming shift is on %s", e.Shift)
	phone := dialable(e.Phone)
	body := strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
	return Schedule{
		Phone:   phone,
		Message: msg,
		URI:     "sms:" + phone + "?body=" + body,
	}
}

// dialable keeps digits and a leading plus.
func dialable(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

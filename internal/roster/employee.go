package roster

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ShiftDay is the weekday an employee works.
type ShiftDay string

const (
	Monday    ShiftDay = "Monday"
	Tuesday   ShiftDay = "Tuesday"
	Wednesday ShiftDay = "Wednesday"
	Thursday  ShiftDay = "Thursday"
	Friday    ShiftDay = "Friday"
	Saturday  ShiftDay = "Saturday"
	Sunday    ShiftDay = "Sunday"
)

// ShiftDays lists every day in week order.
var ShiftDays = []ShiftDay{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseShiftDay accepts a day name in any case.
func ParseShiftDay(s string) (ShiftDay, error) {
	s = strings.TrimSpace(s)
	for _, d := range ShiftDays {
		if strings.EqualFold(s, string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown shift day %q", s)
}

// Valid reports whether d is one of ShiftDays.
func (d ShiftDay) Valid() bool {
	for _, day := range ShiftDays {
		if d == day {
			return true
		}
	}
	return false
}

// Employee is one roster entry. UID is the database key and is empty until
// the employee has been stored.
type Employee struct {
	Name  string   `json:"employeeName"`
	Phone string   `json:"phone"`
	Shift ShiftDay `json:"shift"`
	UID   string   `json:"uid,omitempty"`
}

// NewEmployee returns a blank form entry with the default shift.
func NewEmployee() Employee {
	return Employee{Shift: Monday}
}

// Normalize trims text fields, applies NFC, and canonicalises the shift
// name when it parses.
func (e Employee) Normalize() Employee {
	e.Name = norm.NFC.String(strings.TrimSpace(e.Name))
	e.Phone = norm.NFC.String(strings.TrimSpace(e.Phone))
	if d, err := ParseShiftDay(string(e.Shift)); err == nil {
		e.Shift = d
	}
	return e
}

// record is what gets stored: the key lives in the path, not the value.
type record struct {
	Name  string   `json:"employeeName"`
	Phone string   `json:"phone"`
	Shift ShiftDay `json:"shift"`
}

func (e Employee) record() record {
	return record{Name: e.Name, Phone: e.Phone, Shift: e.Shift}
}

package value

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var monthNames = [12]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// scanFloat scans a leading (optionally signed, optionally hex) number
// from s and returns its value and the number of bytes consumed.
func scanFloat(s string) (float64, int, bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if i+1 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
		j := i + 2
		for j < len(s) && isHexDigit(s[j]) {
			j++
		}
		if j == i+2 {
			return 0, 0, false
		}
		u, err := strconv.ParseUint(s[i+2:j], 16, 64)
		if err != nil {
			return 0, 0, false
		}
		n := float64(u)
		if s[0] == '-' {
			n = -n
		}
		return n, j, true
	}
	j := i
	for j < len(s) && (s[j] >= '0' && s[j] <= '9') {
		j++
	}
	digits := j > i
	if j < len(s) && s[j] == '.' {
		j++
		for j < len(s) && (s[j] >= '0' && s[j] <= '9') {
			digits = true
			j++
		}
	}
	if !digits {
		return 0, 0, false
	}
	// exponent
	if j < len(s) && (s[j] == 'e' || s[j] == 'E') {
		k := j + 1
		if k < len(s) && (s[k] == '+' || s[k] == '-') {
			k++
		}
		e := k
		for e < len(s) && (s[e] >= '0' && s[e] <= '9') {
			e++
		}
		if e > k {
			j = e
		}
	}
	n, err := strconv.ParseFloat(s[:j], 64)
	if err != nil {
		return 0, 0, false
	}
	return n, j, true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// ScanLiteralNumber scans a numeric, clock-time or date literal from the
// start of s. Time literals hh:mm[:ss] (parts may be fractional) yield
// seconds; date literals dd.monthname and dd.mm. yield the day of year
// (0-based, for the current year). Returns the value and bytes consumed.
func ScanLiteralNumber(s string) (float64, int, error) {
	num, o, ok := scanFloat(s)
	if !ok {
		return 0, 0, errors.New("invalid number, time or date")
	}
	if o >= len(s) {
		return num, o, nil
	}
	switch {
	case s[o] == ':':
		// hh:mm or hh:mm:ss, in seconds
		t, i, ok := scanFloat(s[o+1:])
		if !ok {
			return 0, 0, errors.New("invalid time specification - use hh:mm or hh:mm:ss")
		}
		o += i + 1
		num = (num*60 + t) * 60
		if o < len(s) && s[o] == ':' {
			t, i, ok = scanFloat(s[o+1:])
			if !ok {
				return 0, 0, errors.New("time specification has invalid seconds - use hh:mm:ss")
			}
			o += i + 1
			num += t
		}
		return num, o, nil
	case o > 0 && s[o-1] == '.' && isAlpha(s[o]):
		// dd.monthname
		day := int(num)
		if o+3 > len(s) {
			return 0, 0, errors.New("invalid date specification - use dd.monthname")
		}
		name := strings.ToLower(s[o : o+3])
		for m, mn := range monthNames {
			if name == mn {
				return yearDay(m+1, day), o + 3, nil
			}
		}
		return 0, 0, errors.New("invalid date specification - use dd.monthname")
	case s[o] == '.':
		// dd.mm. (scanFloat ate dd.mm as a decimal; rescan as a date)
		day, i, ok := scanInt(s)
		if !ok || i >= len(s) || s[i] != '.' {
			return 0, 0, errors.New("invalid date specification - use dd.mm.")
		}
		mon, j, ok := scanInt(s[i+1:])
		if !ok || i+1+j >= len(s) || s[i+1+j] != '.' {
			return 0, 0, errors.New("invalid date specification - use dd.mm.")
		}
		return yearDay(mon, day), i + 1 + j + 1, nil
	}
	return num, o, nil
}

func scanInt(s string) (int, int, bool) {
	j := 0
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(s[:j])
	if err != nil {
		return 0, 0, false
	}
	return n, j, true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// yearDay maps a day.month of the current year to its 0-based day of
// year, evaluated at noon to stay clear of DST boundary effects.
func yearDay(month, day int) float64 {
	now := time.Now()
	d := time.Date(now.Year(), time.Month(month), day, 12, 0, 0, 0, time.Local)
	return float64(d.YearDay() - 1)
}

// ParseLiteralNumber parses an entire string as a numeric, time or date
// literal. Trailing garbage is an error.
func ParseLiteralNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	n, used, err := ScanLiteralNumber(s)
	if err != nil {
		return 0, err
	}
	if used != len(s) {
		return 0, errors.New("invalid number, time or date")
	}
	return n, nil
}

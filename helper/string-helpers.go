package helper

import (
	"encoding/csv"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CsvToStringSliceTrimSpaces converts a string of the form, 'f1, f2, "f 3", ...' into a slice of string values.
// Leading and trailing spaces are removed and empty values are dropped.
func CsvToStringSliceTrimSpaces(s string) (retval []string) {
	c := csv.NewReader(strings.NewReader(s))
	c.TrimLeadingSpace = true
	all, _ := c.ReadAll()
	for _, rec := range all { // for each line in the CSV...
		for _, val := range rec {
			v := strings.TrimSpace(val)
			if v != "" {
				retval = append(retval, v) // save all values.
			}
		}
	}
	return
}

// GetTrueFalseStringAsBool trims spaces from s and checks if it can regexp (case insensitive) match "true".
// It returns true if there's a match else false.
func GetTrueFalseStringAsBool(s string) bool {
	re := regexp.MustCompile("(?i)^true$")
	s = strings.TrimSpace(s)
	if re.MatchString(s) {
		return true
	} else {
		return false
	}
}

// GetDurationFromString parses s as a Go duration, falling back to whole seconds if s is a plain integer.
// The defaultValue is returned if s is empty or can't be parsed.
func GetDurationFromString(s string, defaultValue time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

// GetIntFromString returns the integer in s or defaultValue if s is not an integer.
func GetIntFromString(s string, defaultValue int) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultValue
	}
	return i
}

// EscapeSingleQuotesInString doubles any single quotes found in s and escapes backslashes so s is safe
// inside a SQL string literal.
func EscapeSingleQuotesInString(s string) string {
	s = strings.Replace(s, `\`, `\\`, -1)
	return strings.Replace(s, `'`, `''`, -1)
}

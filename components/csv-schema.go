package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relloyd/healthpipe/rdbms"
)

// InferSchema returns the columns for a CSV file given its header row (may be nil) and a sample of data rows.
// With autodetect off every column is a STRING.
// The number of columns is taken from the header, or the widest sample row when there is no header.
func InferSchema(header []string, sample [][]string, autodetect bool) []Column {
	width := len(header)
	if width == 0 {
		for _, rec := range sample {
			if len(rec) > width {
				width = len(rec)
			}
		}
	}
	cols := make([]Column, width)
	seen := make(map[string]int, width)
	for i := range cols {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("string_field_%v", i)
		}
		// Make duplicate names unique.
		key := strings.ToLower(name)
		if n, ok := seen[key]; ok {
			seen[key] = n + 1
			name = fmt.Sprintf("%v_%v", name, n+1)
		} else {
			seen[key] = 0
		}
		cols[i] = Column{Name: name, Type: rdbms.ColumnTypeString}
		if autodetect {
			cols[i].Type = inferType(sample, i)
		}
	}
	return cols
}

// inferType returns the narrowest type that can hold every non-empty value in column idx.
func inferType(sample [][]string, idx int) rdbms.ColumnType {
	isInt, isFloat, isBoolean := true, true, true
	found := false
	for _, rec := range sample {
		if idx >= len(rec) {
			continue
		}
		v := strings.TrimSpace(rec[idx])
		if v == "" {
			continue
		}
		found = true
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBoolean && !isBool(v) {
			isBoolean = false
		}
		if !isInt && !isFloat && !isBoolean {
			break
		}
	}
	switch {
	case !found:
		return rdbms.ColumnTypeString
	case isInt:
		return rdbms.ColumnTypeInt
	case isFloat:
		return rdbms.ColumnTypeFloat
	case isBoolean:
		return rdbms.ColumnTypeBool
	default:
		return rdbms.ColumnTypeString
	}
}

func isBool(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

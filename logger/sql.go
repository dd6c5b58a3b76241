package logger

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

func isPrintable(s []byte) bool {
	for _, r := range s {
		if !unicode.IsPrint(rune(r)) {
			return false
		}
	}
	return true
}

func quote(s, escaper string) string {
	return escaper + strings.ReplaceAll(s, escaper, "\\"+escaper) + escaper
}

// ExplainSQL interpolates vars into a fetch query for logging only.
// numericPlaceholder matches $1 or @p1 style placeholders, nil means ?.
func ExplainSQL(sql string, numericPlaceholder *regexp.Regexp, escaper string, vars ...interface{}) string {
	formatted := make([]string, len(vars))
	for idx, v := range vars {
		if valuer, ok := v.(driver.Valuer); ok {
			v, _ = valuer.Value()
		}

		switch v := v.(type) {
		case bool:
			formatted[idx] = strconv.FormatBool(v)
		case time.Time:
			formatted[idx] = escaper + v.Format("2006-01-02 15:04:05") + escaper
		case *time.Time:
			if v == nil {
				formatted[idx] = "NULL"
			} else {
				formatted[idx] = escaper + v.Format("2006-01-02 15:04:05") + escaper
			}
		case []byte:
			if isPrintable(v) {
				formatted[idx] = quote(string(v), escaper)
			} else {
				formatted[idx] = escaper + "<binary>" + escaper
			}
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			formatted[idx] = fmt.Sprintf("%d", v)
		case float64, float32:
			formatted[idx] = fmt.Sprintf("%.6f", v)
		case string:
			formatted[idx] = quote(v, escaper)
		default:
			if v == nil {
				formatted[idx] = "NULL"
			} else {
				formatted[idx] = quote(fmt.Sprint(v), escaper)
			}
		}
	}

	if numericPlaceholder == nil {
		var (
			buf strings.Builder
			idx int
		)
		for _, r := range sql {
			if r == '?' && idx < len(formatted) {
				buf.WriteString(formatted[idx])
				idx++
				continue
			}
			buf.WriteRune(r)
		}
		return buf.String()
	}

	return numericPlaceholder.ReplaceAllStringFunc(sql, func(match string) string {
		sub := numericPlaceholder.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		if n, err := strconv.Atoi(sub[1]); err == nil && n >= 1 && n <= len(formatted) {
			return formatted[n-1]
		}
		return match
	})
}

package logger_test

import (
	"regexp"
	"testing"

	"github.com/jinzhu/now"
	"github.com/modelkit/tableless/logger"
)

func TestExplainSQL(t *testing.T) {
	type role string
	var (
		tt     = now.MustParse("2020-02-23 11:10:10")
		myrole = role("admin")
	)

	results := []struct {
		SQL           string
		NumericRegexp *regexp.Regexp
		Vars          []interface{}
		Result        string
	}{
		{
			SQL:    "SELECT * FROM customers WHERE id IN (?, ?, ?)",
			Vars:   []interface{}{1, int64(2), uint(3)},
			Result: `SELECT * FROM customers WHERE id IN (1, 2, 3)`,
		},
		{
			SQL:    "SELECT * FROM customers WHERE code IN (?, ?) AND active = ?",
			Vars:   []interface{}{"a?b", []byte("x\"y"), true},
			Result: `SELECT * FROM customers WHERE code IN ("a?b", "x\"y") AND active = true`,
		},
		{
			SQL:           "SELECT * FROM customers WHERE id = ANY($1) AND role = $2 AND since < $3",
			NumericRegexp: regexp.MustCompile(`\$(\d+)`),
			Vars:          []interface{}{"{1,2}", myrole, tt},
			Result:        `SELECT * FROM customers WHERE id = ANY("{1,2}") AND role = "admin" AND since < "2020-02-23 11:10:10"`,
		},
		{
			SQL:           "SELECT * FROM customers WHERE id IN ($2, $1) AND deleted_at IS $3",
			NumericRegexp: regexp.MustCompile(`\$(\d+)`),
			Vars:          []interface{}{10, 20, nil},
			Result:        `SELECT * FROM customers WHERE id IN (20, 10) AND deleted_at IS NULL`,
		},
		{
			SQL:    "SELECT * FROM prices WHERE amount > ?",
			Vars:   []interface{}{9.5},
			Result: `SELECT * FROM prices WHERE amount > 9.500000`,
		},
	}

	for idx, r := range results {
		if result := logger.ExplainSQL(r.SQL, r.NumericRegexp, `"`, r.Vars...); result != r.Result {
			t.Errorf("Explain SQL #%v expects %v, but got %v", idx, r.Result, result)
		}
	}
}

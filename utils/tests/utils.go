package tests

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/modelkit/tableless/utils"
)

// Getter reads attribute values
type Getter interface {
	Get(name string) interface{}
}

// AssertAttributes compares the named attributes of got with expect.
// Times are compared to the second, decimals by value.
func AssertAttributes(t *testing.T, got Getter, expect map[string]interface{}) {
	t.Helper()
	for name, value := range expect {
		t.Run(name, func(t *testing.T) {
			AssertEqual(t, got.Get(name), value)
		})
	}
}

// AssertEqual compares two attribute values
func AssertEqual(t *testing.T, got, expect interface{}) {
	t.Helper()
	switch e := expect.(type) {
	case time.Time:
		g, ok := got.(time.Time)
		if !ok {
			t.Errorf("%v: expect: %v, got %#v", utils.FileWithLineNum(), e, got)
			return
		}
		if !g.Truncate(time.Second).Equal(e.Truncate(time.Second)) {
			t.Errorf("%v: expect: %v, got %v after time truncate", utils.FileWithLineNum(), e, g)
		}
	case *big.Rat:
		g, ok := got.(*big.Rat)
		if !ok || g.Cmp(e) != 0 {
			t.Errorf("%v: expect: %v, got %#v", utils.FileWithLineNum(), e, got)
		}
	default:
		assert.Equal(t, expect, got)
	}
}

func Now() *time.Time {
	now := time.Now()
	return &now
}

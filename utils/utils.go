package utils

import (
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
)

var sourceDir string

func init() {
	_, file, _, _ := runtime.Caller(0)
	sourceDir = moduleDir(file)
}

func moduleDir(file string) string {
	// utils/utils.go lives one level below the module root
	return filepath.ToSlash(filepath.Dir(filepath.Dir(file))) + "/"
}

// CallerFrame returns the first frame outside of this module, test files excluded
func CallerFrame() runtime.Frame {
	pcs := [13]uintptr{}
	// the first two callers are runtime.Callers and CallerFrame itself
	length := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:length])
	for i := 0; i < length; i++ {
		frame, more := frames.Next()
		if (!strings.HasPrefix(frame.File, sourceDir) || strings.HasSuffix(frame.File, "_test.go")) && !strings.HasSuffix(frame.File, ".gen.go") {
			return frame
		}
		if !more {
			break
		}
	}
	return runtime.Frame{}
}

// FileWithLineNum return the file name and line number of the current file
func FileWithLineNum() string {
	frame := CallerFrame()
	if frame.PC != 0 {
		return frame.File + ":" + strconv.FormatInt(int64(frame.Line), 10)
	}
	return ""
}

// ToStringKey builds the identity key used to match foreign keys against primary keys.
// Numeric values of different widths produce the same key.
func ToStringKey(values ...interface{}) string {
	results := make([]string, len(values))

	for idx, value := range values {
		if valuer, ok := value.(driver.Valuer); ok {
			value, _ = valuer.Value()
		}

		switch v := value.(type) {
		case string:
			results[idx] = v
		case []byte:
			results[idx] = string(v)
		case nil:
			results[idx] = ""
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			results[idx] = ToString(v)
		case fmt.Stringer:
			results[idx] = v.String()
		default:
			rv := reflect.Indirect(reflect.ValueOf(v))
			if !rv.IsValid() {
				results[idx] = ""
			} else {
				results[idx] = fmt.Sprint(rv.Interface())
			}
		}
	}

	return strings.Join(results, "_")
}

// IsNil reports whether value is nil or a nil pointer, map, slice or interface
func IsNil(value interface{}) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func ToString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return ""
}

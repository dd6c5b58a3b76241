package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"github.com/modelkit/tableless/utils"
)

type stringCaster struct{}

func (stringCaster) Name() string { return "String" }

func (c stringCaster) Cast(value interface{}) (interface{}, error) {
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return utils.ToString(v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return nil, invalid(value, c.Name())
	}
}

func (c stringCaster) Serialize(value interface{}) (interface{}, error) {
	return c.Cast(value)
}

type integerCaster struct{}

func (integerCaster) Name() string { return "Integer" }

func (c integerCaster) Cast(value interface{}) (interface{}, error) {
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return c.Cast(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, invalid(value, c.Name())
		}
		return int64(v), nil
	case float32:
		return c.Cast(float64(v))
	case float64:
		// int64(v) is implementation defined outside [-2^63, 2^63)
		if math.IsNaN(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return nil, invalid(value, c.Name())
		}
		return int64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case time.Time:
		// datetime_point columns store the unix timestamp
		return v.Unix(), nil
	case json.Number:
		return c.Cast(string(v))
	case []byte:
		return c.Cast(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return c.Cast(f)
		}
		return nil, invalid(value, c.Name())
	default:
		return nil, invalid(value, c.Name())
	}
}

func (c integerCaster) Serialize(value interface{}) (interface{}, error) {
	return c.Cast(value)
}

type floatCaster struct{}

func (floatCaster) Name() string { return "Float" }

func (c floatCaster) Cast(value interface{}) (interface{}, error) {
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, _ := strconv.ParseFloat(utils.ToString(v), 64)
		return f, nil
	case json.Number:
		return c.Cast(string(v))
	case []byte:
		return c.Cast(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, invalid(value, c.Name())
		}
		return f, nil
	default:
		return nil, invalid(value, c.Name())
	}
}

func (c floatCaster) Serialize(value interface{}) (interface{}, error) {
	return c.Cast(value)
}

// decimalCaster keeps exact values as *big.Rat and stores them as decimal strings
type decimalCaster struct{}

func (decimalCaster) Name() string { return "Decimal" }

func (c decimalCaster) Cast(value interface{}) (interface{}, error) {
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case *big.Rat:
		return new(big.Rat).Set(v), nil
	case big.Rat:
		return new(big.Rat).Set(&v), nil
	case float32:
		return c.Cast(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalid(value, c.Name())
		}
		return c.Cast(strconv.FormatFloat(v, 'f', -1, 64))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return c.Cast(utils.ToString(v))
	case json.Number:
		return c.Cast(string(v))
	case []byte:
		return c.Cast(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			return nil, invalid(value, c.Name())
		}
		return r, nil
	default:
		return nil, invalid(value, c.Name())
	}
}

func (c decimalCaster) Serialize(value interface{}) (interface{}, error) {
	v, err := c.Cast(value)
	if v == nil || err != nil {
		return nil, err
	}
	return decimalString(v.(*big.Rat)), nil
}

// decimalString prints r exactly when its denominator only has factors 2 and 5
func decimalString(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}

	denom := new(big.Int).Set(r.Denom())
	two, five, zero := big.NewInt(2), big.NewInt(5), big.NewInt(0)
	mod := new(big.Int)
	twos, fives := 0, 0
	for mod.Mod(denom, two).Cmp(zero) == 0 {
		denom.Div(denom, two)
		twos++
	}
	for mod.Mod(denom, five).Cmp(zero) == 0 {
		denom.Div(denom, five)
		fives++
	}
	if denom.Cmp(big.NewInt(1)) != 0 {
		return r.FloatString(18)
	}

	prec := twos
	if fives > prec {
		prec = fives
	}
	return r.FloatString(prec)
}

// booleanCaster follows the usual form/database conventions for false values
type booleanCaster struct{}

var falseValues = map[string]bool{
	"0": true, "f": true, "false": true, "off": true, "n": true, "no": true,
}

func (booleanCaster) Name() string { return "Boolean" }

func (c booleanCaster) Cast(value interface{}) (interface{}, error) {
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return utils.ToString(v) != "0", nil
	case float32:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case []byte:
		return c.Cast(string(v))
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if s == "" {
			return nil, nil
		}
		return !falseValues[s], nil
	default:
		return nil, invalid(value, c.Name())
	}
}

func (c booleanCaster) Serialize(value interface{}) (interface{}, error) {
	return c.Cast(value)
}

// valueCaster passes values through untouched
type valueCaster struct{}

func (valueCaster) Name() string { return "Value" }

func (valueCaster) Cast(value interface{}) (interface{}, error) {
	return unwrap(value), nil
}

func (valueCaster) Serialize(value interface{}) (interface{}, error) {
	return unwrap(value), nil
}

type binaryCaster struct{}

func (binaryCaster) Name() string { return "Binary" }

func (c binaryCaster) Cast(value interface{}) (interface{}, error) {
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.Clone(v), nil
	case string:
		return []byte(v), nil
	case json.RawMessage:
		return bytes.Clone(v), nil
	default:
		return nil, invalid(value, c.Name())
	}
}

func (c binaryCaster) Serialize(value interface{}) (interface{}, error) {
	return c.Cast(value)
}

// jsonCaster decodes documents into generic maps, slices and scalars
type jsonCaster struct{}

func (jsonCaster) Name() string { return "Json" }

func (c jsonCaster) Cast(value interface{}) (interface{}, error) {
	var data []byte
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		data = b
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var result interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode json: %v", ErrInvalidValue, err)
	}
	return result, nil
}

func (c jsonCaster) Serialize(value interface{}) (interface{}, error) {
	v, err := c.Cast(value)
	if v == nil || err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return string(b), nil
}

type uuidCaster struct{}

func (uuidCaster) Name() string { return "Uuid" }

func (c uuidCaster) Cast(value interface{}) (interface{}, error) {
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			id, err := uuid.FromBytes(v)
			if err != nil {
				return nil, invalid(value, c.Name())
			}
			return id, nil
		}
		return c.Cast(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, invalid(value, c.Name())
		}
		return id, nil
	default:
		return nil, invalid(value, c.Name())
	}
}

func (c uuidCaster) Serialize(value interface{}) (interface{}, error) {
	v, err := c.Cast(value)
	if v == nil || err != nil {
		return nil, err
	}
	return v.(uuid.UUID).String(), nil
}

func parseTime(s string, location *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(location), nil
	}
	return now.ParseInLocation(location, s)
}

// dateTimeCaster casts to time.Time in its location
type dateTimeCaster struct {
	location *time.Location
}

func (dateTimeCaster) Name() string { return "DateTime" }

func (c dateTimeCaster) Cast(value interface{}) (interface{}, error) {
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.In(c.location), nil
	case int64:
		return time.Unix(v, 0).In(c.location), nil
	case int:
		return time.Unix(int64(v), 0).In(c.location), nil
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).In(c.location), nil
	case []byte:
		return c.Cast(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		t, err := parseTime(s, c.location)
		if err != nil {
			return nil, invalid(value, c.Name())
		}
		return t, nil
	default:
		return nil, invalid(value, c.Name())
	}
}

func (c dateTimeCaster) Serialize(value interface{}) (interface{}, error) {
	v, err := c.Cast(value)
	if v == nil || err != nil {
		return nil, err
	}
	return v.(time.Time).Format(time.RFC3339Nano), nil
}

// dateCaster casts to midnight of the date in its location
type dateCaster struct {
	location *time.Location
}

const dateLayout = "2006-01-02"

func (dateCaster) Name() string { return "Date" }

func (c dateCaster) Cast(value interface{}) (interface{}, error) {
	var t time.Time
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = v.In(c.location)
	case []byte:
		return c.Cast(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		var err error
		if t, err = time.ParseInLocation(dateLayout, s, c.location); err != nil {
			if t, err = parseTime(s, c.location); err != nil {
				return nil, invalid(value, c.Name())
			}
		}
	default:
		return nil, invalid(value, c.Name())
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.location), nil
}

func (c dateCaster) Serialize(value interface{}) (interface{}, error) {
	v, err := c.Cast(value)
	if v == nil || err != nil {
		return nil, err
	}
	return v.(time.Time).Format(dateLayout), nil
}

// timeCaster keeps the time of day on 2000-01-01
type timeCaster struct {
	location *time.Location
}

const timeLayout = "15:04:05.999999999"

func (timeCaster) Name() string { return "Time" }

func (c timeCaster) Cast(value interface{}) (interface{}, error) {
	var t time.Time
	switch v := unwrap(value).(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = v.In(c.location)
	case []byte:
		return c.Cast(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		var err error
		if t, err = time.ParseInLocation(timeLayout, s, c.location); err != nil {
			if t, err = parseTime(s, c.location); err != nil {
				return nil, invalid(value, c.Name())
			}
		}
	default:
		return nil, invalid(value, c.Name())
	}
	return time.Date(2000, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), c.location), nil
}

func (c timeCaster) Serialize(value interface{}) (interface{}, error) {
	v, err := c.Cast(value)
	if v == nil || err != nil {
		return nil, err
	}
	return v.(time.Time).Format(timeLayout), nil
}

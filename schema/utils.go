package schema

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/modelkit/tableless/utils"
)

func invalid(value interface{}, caster string) error {
	return fmt.Errorf("%w: can't cast %T(%v) to %v", ErrInvalidValue, value, value, caster)
}

// unwrap resolves driver.Valuer and pointers before casting
func unwrap(value interface{}) interface{} {
	if valuer, ok := value.(driver.Valuer); ok && !utils.IsNil(value) {
		if v, err := valuer.Value(); err == nil {
			value = v
		}
	}

	switch v := value.(type) {
	case *string:
		if v != nil {
			return *v
		}
		return nil
	case *int64:
		if v != nil {
			return *v
		}
		return nil
	case *int:
		if v != nil {
			return *v
		}
		return nil
	case *float64:
		if v != nil {
			return *v
		}
		return nil
	case *bool:
		if v != nil {
			return *v
		}
		return nil
	case *time.Time:
		if v != nil {
			return *v
		}
		return nil
	}

	if utils.IsNil(value) {
		return nil
	}
	return value
}

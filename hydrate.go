package mappify

import (
	stdsql "database/sql"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var (
	scannerType = reflect.TypeFor[stdsql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
)

// hydrate copies a database row into v. Columns the schema does not
// declare are ignored, so `SELECT *` over wider tables works.
func (s *Schema) hydrate(v reflect.Value, row map[string]any) error {
	for name, src := range row {
		c, ok := s.byColumn[name]
		if !ok {
			continue
		}
		if err := assign(v.FieldByIndex(c.index), src); err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
	}
	return nil
}

// apply copies caller data into v. Unknown columns are rejected.
func (s *Schema) apply(v reflect.Value, data map[string]any) error {
	for name, src := range data {
		c, ok := s.byColumn[name]
		if !ok {
			return NewValidationError(name, fmt.Errorf("%s has no column %q", s.Name, name))
		}
		if err := assign(v.FieldByIndex(c.index), src); err != nil {
			return NewValidationError(name, err)
		}
	}
	return nil
}

// assign stores src in dst, converting between the loose types drivers
// return and the declared field type. NULL resets dst to its zero value.
func assign(dst reflect.Value, src any) error {
	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(stdsql.Scanner).Scan(src)
	}
	if src == nil {
		dst.SetZero()
		return nil
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	if b, ok := src.([]byte); ok {
		src = string(b)
	}
	if dst.Type() == timeType {
		t, err := cast.ToTimeE(src)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}
	switch dst.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(src)
		if err != nil {
			return err
		}
		dst.SetString(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(src)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, dst.Type())
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toUint64(src)
		if err != nil {
			return err
		}
		if dst.OverflowUint(n) {
			return fmt.Errorf("value %d overflows %s", n, dst.Type())
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(src)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	case reflect.Slice:
		s, ok := src.(string)
		if !ok || dst.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("cannot assign %T to %s", src, dst.Type())
		}
		dst.SetBytes([]byte(s))
	default:
		sv = reflect.ValueOf(src)
		if !sv.Type().ConvertibleTo(dst.Type()) {
			return fmt.Errorf("cannot assign %T to %s", src, dst.Type())
		}
		dst.Set(sv.Convert(dst.Type()))
	}
	return nil
}

// toInt64 reads strings in base 10 and accepts only whole floats.
func toInt64(src any) (int64, error) {
	switch v := src.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case float32:
		return wholeInt(float64(v))
	case float64:
		return wholeInt(v)
	}
	return cast.ToInt64E(src)
}

func toUint64(src any) (uint64, error) {
	switch v := src.(type) {
	case string:
		return strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	case float32, float64:
		n, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("negative value %d for an unsigned field", n)
		}
		return uint64(n), nil
	}
	return cast.ToUint64E(src)
}

func wholeInt(f float64) (int64, error) {
	if math.Trunc(f) != f || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

var errNilEntity = errors.New("nil entity")

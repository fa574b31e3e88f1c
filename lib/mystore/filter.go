package mystore

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"
)

// applyFilters evaluates datastore-style filters ("=", "!=", "<", "<=", ">", ">=") on exported struct fields
// and orders the result by orderByField, a leading "-" meaning descending.
func applyFilters[T any](items []T, filters []Filter, orderByField string) ([]T, error) {
	result := make([]T, 0, len(items))
	for _, item := range items {
		match := true
		for _, f := range filters {
			ok, err := matches(item, f)
			if err != nil {
				return nil, err
			}
			if !ok {
				match = false
				break
			}
		}
		if match {
			result = append(result, item)
		}
	}

	if orderByField == "" {
		return result, nil
	}

	descending := strings.HasPrefix(orderByField, "-")
	field := strings.TrimPrefix(orderByField, "-")

	var sortErr error
	slices.SortStableFunc(result, func(a, b T) int {
		av, err := fieldValue(a, field)
		if err != nil {
			sortErr = err
			return 0
		}
		bv, err := fieldValue(b, field)
		if err != nil {
			sortErr = err
			return 0
		}
		order, err := compareValues(av, bv)
		if err != nil {
			sortErr = err
			return 0
		}
		if descending {
			return -order
		}
		return order
	})
	if sortErr != nil {
		return nil, sortErr
	}

	return result, nil
}

func matches(item any, f Filter) (bool, error) {
	value, err := fieldValue(item, f.Field)
	if err != nil {
		return false, err
	}

	order, err := compareValues(value, f.Value)
	if err != nil {
		return false, fmt.Errorf("error comparing field %s: %w", f.Field, err)
	}

	switch strings.TrimSpace(f.Compare) {
	case "=", "==":
		return order == 0, nil
	case "!=":
		return order != 0, nil
	case "<":
		return order < 0, nil
	case "<=":
		return order <= 0, nil
	case ">":
		return order > 0, nil
	case ">=":
		return order >= 0, nil
	default:
		return false, fmt.Errorf("unsupported comparison operator %q", f.Compare)
	}
}

func fieldValue(item any, field string) (any, error) {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot filter on field %s of non-struct %T", field, item)
	}

	f := v.FieldByName(field)
	if !f.IsValid() {
		return nil, fmt.Errorf("type %T has no field %s", item, field)
	}

	return f.Interface(), nil
}

func compareValues(a, b any) (int, error) {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare time with %T", b)
		}
		return at.Compare(bt), nil
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case isString(av) && isString(bv):
		return cmp.Compare(av.String(), bv.String()), nil
	case isNumber(av) && isNumber(bv):
		return cmp.Compare(asFloat(av), asFloat(bv)), nil
	case av.Kind() == reflect.Bool && bv.Kind() == reflect.Bool:
		if av.Bool() == bv.Bool() {
			return 0, nil
		}
		if !av.Bool() {
			return -1, nil
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("cannot compare %T with %T", a, b)
	}
}

func isString(v reflect.Value) bool {
	return v.IsValid() && v.Kind() == reflect.String
}

func isNumber(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func asFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

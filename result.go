package db

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode"
)

// Row holds the values of one result row, in column order.
type Row []any

// Result is the fully read output of one query.
type Result struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Maps returns every row keyed by column name.
func (r *Result) Maps() []map[string]any {
	if r == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// Scan decodes the rows into dest, which must point to a slice of structs or
// struct pointers. Columns map to fields through a `db:"name"` tag, falling
// back to the snake_case form of the field name. Unknown columns are skipped.
func (r *Result) Scan(dest any) error {
	destVal := reflect.ValueOf(dest)
	if destVal.Kind() != reflect.Ptr || destVal.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("dest must be a pointer to a slice")
	}

	sliceVal := destVal.Elem()
	elemType := sliceVal.Type().Elem()
	ptrElems := elemType.Kind() == reflect.Ptr
	if ptrElems {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("dest elements must be structs, got %s", elemType)
	}
	if r == nil {
		return nil
	}

	fields := fieldsByColumn(elemType)
	for _, row := range r.Rows {
		elemPtr := reflect.New(elemType)
		elemVal := elemPtr.Elem()
		for i, col := range r.Columns {
			idx, ok := fields[col]
			if !ok || i >= len(row) {
				continue
			}
			if err := assign(elemVal.Field(idx), row[i]); err != nil {
				return fmt.Errorf("failed to scan column %s: %w", col, err)
			}
		}
		if ptrElems {
			sliceVal.Set(reflect.Append(sliceVal, elemPtr))
		} else {
			sliceVal.Set(reflect.Append(sliceVal, elemVal))
		}
	}
	return nil
}

func fieldsByColumn(t reflect.Type) map[string]int {
	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("db")
		if name == "-" {
			continue
		}
		if name == "" {
			name = snakeCase(f.Name)
		}
		fields[name] = i
	}
	return fields
}

// snakeCase turns CreatedAt into created_at. A run of capitals is one word,
// so UserID becomes user_id and HTTPStatus becomes http_status.
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func assign(field reflect.Value, v any) error {
	if v == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if b, ok := v.([]byte); ok && field.Kind() == reflect.String {
		field.SetString(string(b))
		return nil
	}

	val := reflect.ValueOf(v)
	switch {
	case val.Type().AssignableTo(field.Type()):
		field.Set(val)
	case field.Kind() == reflect.Ptr:
		p := reflect.New(field.Type().Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		field.Set(p)
	case isNumeric(val.Kind()) && isNumeric(field.Kind()):
		return assignNumeric(field, val)
	default:
		return fmt.Errorf("cannot assign %T to %s", v, field.Type())
	}
	return nil
}

// assignNumeric converts val into field, refusing anything that would wrap
// or drop a fraction.
func assignNumeric(field, val reflect.Value) error {
	dst := field.Type()
	switch {
	case isInt(val.Kind()):
		n := val.Int()
		switch {
		case isInt(field.Kind()) && field.OverflowInt(n),
			isUint(field.Kind()) && (n < 0 || field.OverflowUint(uint64(n))):
			return fmt.Errorf("value %d overflows %s", n, dst)
		}
	case isUint(val.Kind()):
		n := val.Uint()
		switch {
		case isInt(field.Kind()) && (n > math.MaxInt64 || field.OverflowInt(int64(n))),
			isUint(field.Kind()) && field.OverflowUint(n):
			return fmt.Errorf("value %d overflows %s", n, dst)
		}
	default:
		f := val.Float()
		if !isFloat(field.Kind()) {
			return fmt.Errorf("cannot assign %s %v to %s", val.Type(), f, dst)
		}
		if field.OverflowFloat(f) {
			return fmt.Errorf("value %v overflows %s", f, dst)
		}
	}
	field.Set(val.Convert(dst))
	return nil
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || isFloat(k)
}

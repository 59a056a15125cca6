package util

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

var ErrNotAStruct = errors.New("not a struct")

// IsStructInitialized returns an error naming every exported field of s that still
// holds its zero value. Fields tagged `wire:"-"` are initialized later and skipped.
func IsStructInitialized(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return errors.New("nil pointer")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return errors.Wrap(ErrNotAStruct, v.Kind().String())
	}

	t := v.Type()

	var missing []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("wire") == "-" {
			continue
		}

		if v.Field(i).IsZero() {
			missing = append(missing, f.Name)
		}
	}

	if len(missing) > 0 {
		return errors.Errorf("uninitialized fields: %s", strings.Join(missing, ", "))
	}

	return nil
}

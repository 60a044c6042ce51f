package persistence

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// apiField is a column a client may filter, sort or project by its JSON name.
type apiField struct {
	column    string
	kind      reflect.Type
	queryable bool
}

// fieldMap maps the JSON names of a model to its columns.
type fieldMap map[string]apiField

var schemaCache sync.Map

func buildFieldMap(db *gorm.DB, model interface{}) (fieldMap, error) {
	s, err := schema.Parse(model, &schemaCache, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	fields := make(fieldMap, len(s.Fields))
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		kind := f.FieldType
		for kind.Kind() == reflect.Ptr {
			kind = kind.Elem()
		}
		fields[name] = apiField{
			column:    f.DBName,
			kind:      kind,
			queryable: f.Serializer == nil,
		}
	}
	return fields, nil
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// convert parses a raw query-string value into the Go type of the column.
func (f apiField) convert(raw string) (interface{}, error) {
	switch {
	case f.kind == timeType:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("must be a date")
	case f.kind == uuidType:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("must be an id")
		}
		return id, nil
	}

	switch f.kind.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("must be an integer")
		}
		return n, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("must be a positive integer")
		}
		return n, nil
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("must be a number")
		}
		return n, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("must be true or false")
		}
		return b, nil
	case reflect.String:
		return raw, nil
	}
	return nil, fmt.Errorf("cannot be filtered")
}

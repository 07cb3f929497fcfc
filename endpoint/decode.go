package endpoint

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

var defaultFieldLimit = 16 * 1024 // 16KB

// Unmarshal populates dst (a non-nil pointer to a struct) from the request.
//
// Supported struct tags:
//   - `body:""`: the request body. string and []byte fields receive the raw
//     bytes; any other type is decoded as JSON. At most one body field.
//   - `header:"Name"`: a request header. Slice fields receive every value,
//     scalar fields the first.
//   - `maxLength:"n"`: maximum byte length of the field value. The default is
//     16KB; `maxLength:""` or `maxLength:"0"` removes the limit.
//
// Fields with no data in the request are left unchanged. A body that exceeds
// an http.MaxBytesReader limit yields a 413 error; other decode failures
// yield 400.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return newEndpointError(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return newEndpointError(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}
	root := v.Elem()
	if root.Kind() == reflect.Pointer {
		if root.IsNil() {
			root.Set(reflect.New(root.Type().Elem()))
		}
		root = root.Elem()
	}
	if root.Kind() != reflect.Struct {
		return newEndpointError(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct (or pointer to struct)"))
	}

	t := root.Type()
	bodyField := -1
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := root.Field(i)

		limit, err := fieldLengthLimit(sf)
		if err != nil {
			return newEndpointError(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: field %s: %w", sf.Name, err))
		}

		if _, ok := sf.Tag.Lookup("body"); ok {
			if bodyField != -1 {
				return newEndpointError(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: multiple body fields: %s and %s", t.Field(bodyField).Name, sf.Name))
			}
			bodyField = i
			if err := decodeBody(r, fv, limit, sf.Name); err != nil {
				return err
			}
			continue
		}

		if name, ok := sf.Tag.Lookup("header"); ok {
			name = strings.TrimSpace(name)
			if name == "-" {
				continue
			}
			if name == "" {
				name = sf.Name
			}
			if err := decodeHeader(r, fv, name, limit, sf.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeBody(r *http.Request, fv reflect.Value, limit int, fieldName string) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	src := io.Reader(r.Body)
	if limit > 0 {
		// Read one byte past the limit to detect overflow.
		src = io.LimitReader(r.Body, int64(limit)+1)
	}
	b, err := io.ReadAll(src)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return newEndpointError(http.StatusRequestEntityTooLarge, "", fmt.Errorf("endpoint: decode: body: %w", err))
		}
		return newEndpointError(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body: %w", err))
	}
	if limit > 0 && len(b) > limit {
		return newEndpointError(http.StatusRequestEntityTooLarge, "", fmt.Errorf("endpoint: decode: body -> %s: value exceeds max length %d", fieldName, limit))
	}

	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		fv = fv.Elem()
	}
	switch {
	case fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.Uint8:
		fv.SetBytes(b)
	case fv.Kind() == reflect.String:
		fv.SetString(string(b))
	default:
		if err := json.Unmarshal(b, fv.Addr().Interface()); err != nil {
			return newEndpointError(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: body -> %s: %w", fieldName, err))
		}
	}
	return nil
}

func decodeHeader(r *http.Request, fv reflect.Value, name string, limit int, fieldName string) error {
	// Access the map directly to distinguish present-but-empty from missing.
	values := r.Header[http.CanonicalHeaderKey(name)]
	if len(values) == 0 {
		return nil
	}
	for _, val := range values {
		if limit > 0 && len(val) > limit {
			return newEndpointError(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: header %q -> %s: value exceeds max length %d", name, fieldName, limit))
		}
	}

	if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() != reflect.Uint8 {
		slice := reflect.MakeSlice(fv.Type(), 0, len(values))
		for _, val := range values {
			elem := reflect.New(fv.Type().Elem()).Elem()
			if err := setFieldFromString(elem, val); err != nil {
				return newEndpointError(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: header %q -> %s: %w", name, fieldName, err))
			}
			slice = reflect.Append(slice, elem)
		}
		fv.Set(slice)
		return nil
	}
	if err := setFieldFromString(fv, values[0]); err != nil {
		return newEndpointError(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: header %q -> %s: %w", name, fieldName, err))
	}
	return nil
}

func fieldLengthLimit(sf reflect.StructField) (int, error) {
	val, has := sf.Tag.Lookup("maxLength")
	if !has {
		return defaultFieldLimit, nil
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("maxLength: invalid integer %q", val)
	}
	if n < 0 {
		return 0, errors.New("maxLength: must be >= 0")
	}
	return n, nil
}

func setFieldFromString(v reflect.Value, s string) error {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return setFieldFromString(v.Elem(), s)
	}

	// Prefer a pointer receiver, as most custom types use one.
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(s))
		}
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
		return nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			v.SetBytes([]byte(s))
			return nil
		}
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
		return nil
	}
	return fmt.Errorf("unsupported kind %s", v.Kind())
}

// Package xmlrpc marshals XML-RPC method calls, responses and faults, and
// provides a gorilla/rpc codec which speaks XML-RPC.
package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// value is the wire form of an XML-RPC <value> element. At most one of the typed
// fields is set. A value with no typed child is a string held in Text.
type value struct {
	Int      *string      `xml:"int"`
	I4       *string      `xml:"i4"`
	I8       *string      `xml:"i8"`
	Boolean  *string      `xml:"boolean"`
	String   *string      `xml:"string"`
	Double   *string      `xml:"double"`
	DateTime *string      `xml:"dateTime.iso8601"`
	Base64   *string      `xml:"base64"`
	Struct   *structValue `xml:"struct"`
	Array    *arrayValue  `xml:"array"`
	Nil      *struct{}    `xml:"nil"`
	Text     string       `xml:",chardata"`
}

type structValue struct {
	Members []member `xml:"member"`
}

type member struct {
	Name  string `xml:"name"`
	Value value  `xml:"value"`
}

type arrayValue struct {
	Values []value `xml:"data>value"`
}

// DateTimeFormat is the layout of dateTime.iso8601 values written by this package
const DateTimeFormat = "20060102T15:04:05"

// dateTimeLayouts are accepted when decoding dateTime.iso8601 values
var dateTimeLayouts = []string{
	DateTimeFormat,
	"2006-01-02T15:04:05",
	"20060102T15:04:05Z07:00",
	"2006-01-02T15:04:05Z07:00",
}

var timeType = reflect.TypeOf(time.Time{})

// decode converts a wire value into its Go representation:
// int64, bool, string, float64, time.Time, []byte, []interface{},
// map[string]interface{} or nil.
func (v value) decode() (interface{}, error) {
	switch {
	case v.Int != nil:
		return parseInt(*v.Int)
	case v.I4 != nil:
		return parseInt(*v.I4)
	case v.I8 != nil:
		return parseInt(*v.I8)
	case v.Boolean != nil:
		switch strings.TrimSpace(*v.Boolean) {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return nil, errors.Errorf("bad boolean value %q", *v.Boolean)
	case v.String != nil:
		return *v.String, nil
	case v.Double != nil:
		f, err := strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
		if err != nil {
			return nil, errors.Errorf("bad double value %q", *v.Double)
		}
		return f, nil
	case v.DateTime != nil:
		s := strings.TrimSpace(*v.DateTime)
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, errors.Errorf("bad dateTime.iso8601 value %q", s)
	case v.Base64 != nil:
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(*v.Base64), ""))
		if err != nil {
			return nil, errors.Wrap(err, "bad base64 value")
		}
		return b, nil
	case v.Struct != nil:
		m := make(map[string]interface{}, len(v.Struct.Members))
		for _, mem := range v.Struct.Members {
			decoded, err := mem.Value.decode()
			if err != nil {
				return nil, errors.Wrapf(err, "struct member %q", mem.Name)
			}
			m[mem.Name] = decoded
		}
		return m, nil
	case v.Array != nil:
		items := make([]interface{}, 0, len(v.Array.Values))
		for i, item := range v.Array.Values {
			decoded, err := item.decode()
			if err != nil {
				return nil, errors.Wrapf(err, "array item %d", i)
			}
			items = append(items, decoded)
		}
		return items, nil
	case v.Nil != nil:
		return nil, nil
	}

	return v.Text, nil
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errors.Errorf("bad int value %q", s)
	}
	return n, nil
}

// encoder writes Go values as XML-RPC <value> elements
type encoder struct {
	buf       *bytes.Buffer
	allowNone bool
}

func (e encoder) encode(v reflect.Value) error {
	if !v.IsValid() {
		return e.encodeNil()
	}

	if v.Type() == timeType {
		e.buf.WriteString("<value><dateTime.iso8601>")
		e.buf.WriteString(v.Interface().(time.Time).Format(DateTimeFormat))
		e.buf.WriteString("</dateTime.iso8601></value>")
		return nil
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return e.encodeNil()
		}
		return e.encode(v.Elem())

	case reflect.Bool:
		if v.Bool() {
			e.buf.WriteString("<value><boolean>1</boolean></value>")
		} else {
			e.buf.WriteString("<value><boolean>0</boolean></value>")
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := v.Int()
		if n > math.MaxInt32 || n < math.MinInt32 {
			return errors.New("int exceeds XML-RPC limits")
		}
		fmt.Fprintf(e.buf, "<value><int>%d</int></value>", n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n := v.Uint()
		if n > math.MaxInt32 {
			return errors.New("int exceeds XML-RPC limits")
		}
		fmt.Fprintf(e.buf, "<value><int>%d</int></value>", n)

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.Errorf("cannot marshal non-finite double %v", f)
		}
		e.buf.WriteString("<value><double>")
		e.buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		e.buf.WriteString("</double></value>")

	case reflect.String:
		e.buf.WriteString("<value><string>")
		if err := xml.EscapeText(e.buf, []byte(v.String())); err != nil {
			return err
		}
		e.buf.WriteString("</string></value>")

	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			e.buf.WriteString("<value><base64>")
			e.buf.WriteString(base64.StdEncoding.EncodeToString(b))
			e.buf.WriteString("</base64></value>")
			return nil
		}

		e.buf.WriteString("<value><array><data>")
		for i := 0; i < v.Len(); i++ {
			if err := e.encode(v.Index(i)); err != nil {
				return err
			}
		}
		e.buf.WriteString("</data></array></value>")

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return errors.Errorf("cannot marshal map with %s keys", v.Type().Key())
		}

		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return keys[i].String() < keys[j].String()
		})

		e.buf.WriteString("<value><struct>")
		for _, key := range keys {
			if err := e.encodeMember(key.String(), v.MapIndex(key)); err != nil {
				return err
			}
		}
		e.buf.WriteString("</struct></value>")

	case reflect.Struct:
		e.buf.WriteString("<value><struct>")
		for _, f := range exportedFields(v.Type()) {
			fv := v.FieldByIndex(f.index)
			if f.omitEmpty && fv.IsZero() {
				continue
			}
			if err := e.encodeMember(f.name, fv); err != nil {
				return err
			}
		}
		e.buf.WriteString("</struct></value>")

	default:
		return errors.Errorf("cannot marshal %s", v.Type())
	}

	return nil
}

func (e encoder) encodeMember(name string, v reflect.Value) error {
	e.buf.WriteString("<member><name>")
	if err := xml.EscapeText(e.buf, []byte(name)); err != nil {
		return err
	}
	e.buf.WriteString("</name>")
	if err := e.encode(v); err != nil {
		return errors.Wrapf(err, "member %q", name)
	}
	e.buf.WriteString("</member>")
	return nil
}

func (e encoder) encodeNil() error {
	if !e.allowNone {
		return errors.New("cannot marshal nil unless AllowNone is enabled")
	}
	e.buf.WriteString("<value><nil/></value>")
	return nil
}

// field describes an exported struct field as an XML-RPC struct member
type field struct {
	name      string
	index     []int
	omitEmpty bool
}

// exportedFields lists the fields of t which take part in marshaling. The member
// name is taken from the `xmlrpc:"name,omitempty"` tag, or the field name.
func exportedFields(t reflect.Type) []field {
	fields := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}

		f := field{name: sf.Name, index: sf.Index}
		if tag, ok := sf.Tag.Lookup("xmlrpc"); ok {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				f.name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					f.omitEmpty = true
				}
			}
		}
		fields = append(fields, f)
	}
	return fields
}

// assign stores a decoded XML-RPC value into dst
func assign(dst reflect.Value, src interface{}) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return assign(dst.Elem(), src)
	}

	if dst.Kind() == reflect.Interface && dst.NumMethod() == 0 {
		dst.Set(reflect.ValueOf(src))
		return nil
	}

	if dst.Type() == timeType {
		t, ok := src.(time.Time)
		if !ok {
			return mismatch(dst, src)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	switch dst.Kind() {
	case reflect.Bool:
		b, ok := src.(bool)
		if !ok {
			return mismatch(dst, src)
		}
		dst.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := src.(int64)
		if !ok {
			return mismatch(dst, src)
		}
		if dst.OverflowInt(n) {
			return errors.Errorf("int %d overflows %s", n, dst.Type())
		}
		dst.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := src.(int64)
		if !ok {
			return mismatch(dst, src)
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return errors.Errorf("int %d overflows %s", n, dst.Type())
		}
		dst.SetUint(uint64(n))

	case reflect.Float32, reflect.Float64:
		switch n := src.(type) {
		case float64:
			dst.SetFloat(n)
		case int64:
			dst.SetFloat(float64(n))
		default:
			return mismatch(dst, src)
		}

	case reflect.String:
		s, ok := src.(string)
		if !ok {
			return mismatch(dst, src)
		}
		dst.SetString(s)

	case reflect.Slice:
		if b, ok := src.([]byte); ok && dst.Type().Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(append([]byte(nil), b...))
			return nil
		}
		items, ok := src.([]interface{})
		if !ok {
			return mismatch(dst, src)
		}
		slice := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := assign(slice.Index(i), item); err != nil {
				return errors.Wrapf(err, "array item %d", i)
			}
		}
		dst.Set(slice)

	case reflect.Array:
		items, ok := src.([]interface{})
		if !ok {
			return mismatch(dst, src)
		}
		if len(items) > dst.Len() {
			return errors.Errorf("array of %d items does not fit %s", len(items), dst.Type())
		}
		for i, item := range items {
			if err := assign(dst.Index(i), item); err != nil {
				return errors.Wrapf(err, "array item %d", i)
			}
		}

	case reflect.Map:
		members, ok := src.(map[string]interface{})
		if !ok || dst.Type().Key().Kind() != reflect.String {
			return mismatch(dst, src)
		}
		m := reflect.MakeMapWithSize(dst.Type(), len(members))
		for name, mv := range members {
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err := assign(elem, mv); err != nil {
				return errors.Wrapf(err, "struct member %q", name)
			}
			m.SetMapIndex(reflect.ValueOf(name).Convert(dst.Type().Key()), elem)
		}
		dst.Set(m)

	case reflect.Struct:
		members, ok := src.(map[string]interface{})
		if !ok {
			return mismatch(dst, src)
		}
		for _, f := range exportedFields(dst.Type()) {
			mv, found := lookupMember(members, f.name)
			if !found {
				continue
			}
			if err := assign(dst.FieldByIndex(f.index), mv); err != nil {
				return errors.Wrapf(err, "struct member %q", f.name)
			}
		}

	default:
		return mismatch(dst, src)
	}

	return nil
}

// lookupMember finds a struct member by exact name, falling back to a case
// insensitive match
func lookupMember(members map[string]interface{}, name string) (interface{}, bool) {
	if v, ok := members[name]; ok {
		return v, true
	}
	for k, v := range members {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func mismatch(dst reflect.Value, src interface{}) error {
	return errors.Errorf("cannot assign %s to %s", TypeName(src), dst.Type())
}

// TypeName returns the XML-RPC type name of a decoded value
func TypeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "nil"
	case int64:
		return "int"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64:
		return "double"
	case time.Time:
		return "dateTime.iso8601"
	case []byte:
		return "base64"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "struct"
	}
	return fmt.Sprintf("%T", v)
}

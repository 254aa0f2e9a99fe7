package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// ContentType is the media type of XML-RPC documents
const ContentType = "text/xml"

const xmlHeader = "<?xml version=\"1.0\"?>\n"

// Call is a decoded XML-RPC methodCall document
type Call struct {
	// Method is the called method name as sent by the client
	Method string

	// Params are the decoded positional parameters
	Params []interface{}
}

type methodCall struct {
	XMLName    xml.Name `xml:"methodCall"`
	MethodName string   `xml:"methodName"`
	Params     []param  `xml:"params>param"`
}

type methodResponse struct {
	XMLName xml.Name  `xml:"methodResponse"`
	Params  []param   `xml:"params>param"`
	Fault   *faultDoc `xml:"fault"`
}

type param struct {
	Value value `xml:"value"`
}

type faultDoc struct {
	Value value `xml:"value"`
}

// unmarshal decodes an XML document, honouring its declared charset
func unmarshal(body []byte, dest interface{}) error {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charset.NewReaderLabel
	return decoder.Decode(dest)
}

// ParseCall decodes an XML-RPC methodCall document
func ParseCall(body []byte) (*Call, error) {
	var doc methodCall
	if err := unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse method call")
	}

	call := &Call{
		Method: strings.TrimSpace(doc.MethodName),
		Params: make([]interface{}, 0, len(doc.Params)),
	}
	if call.Method == "" {
		return nil, errors.New("failed to parse method call: missing methodName")
	}

	for i, p := range doc.Params {
		v, err := p.Value.decode()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse method call: parameter %d", i)
		}
		call.Params = append(call.Params, v)
	}

	return call, nil
}

// Assign stores the call's parameters in args, which must be a non-nil pointer.
//
// A struct receives the parameters positionally in the order of its exported
// fields, unless the call has a single XML-RPC struct parameter which the first
// field cannot hold, in which case members are matched to fields by name.
// A slice receives all parameters. Any other type receives the only parameter.
func (c *Call) Assign(args interface{}) error {
	v := reflect.ValueOf(args)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errors.Errorf("cannot assign parameters to non-pointer %T", args)
	}
	v = v.Elem()

	switch {
	case v.Kind() == reflect.Struct && v.Type() != timeType:
		fields := exportedFields(v.Type())

		if len(c.Params) == 1 {
			if members, ok := c.Params[0].(map[string]interface{}); ok &&
				(len(fields) == 0 || !holdsStruct(v.FieldByIndex(fields[0].index).Type())) {
				return assign(v, members)
			}
		}

		if len(c.Params) > len(fields) {
			return errors.Errorf("too many parameters: got %d, expected at most %d",
				len(c.Params), len(fields))
		}
		for i, p := range c.Params {
			if err := assign(v.FieldByIndex(fields[i].index), p); err != nil {
				return errors.Wrapf(err, "parameter %d", i)
			}
		}
		return nil

	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() != reflect.Uint8:
		return assign(v, c.Params)
	}

	if len(c.Params) != 1 {
		return errors.Errorf("expected 1 parameter, got %d", len(c.Params))
	}
	return assign(v, c.Params[0])
}

// holdsStruct reports whether values of t can be assigned an XML-RPC struct
func holdsStruct(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Interface, reflect.Map:
		return true
	case reflect.Struct:
		return t != timeType
	}
	return false
}

// EncodeCall builds an XML-RPC methodCall document. Nil arguments are encoded as
// <nil/>.
func EncodeCall(method string, args ...interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodCall><methodName>")
	if err := xml.EscapeText(&buf, []byte(method)); err != nil {
		return nil, err
	}
	buf.WriteString("</methodName><params>")

	enc := encoder{buf: &buf, allowNone: true}
	for i, arg := range args {
		buf.WriteString("<param>")
		if err := enc.encode(reflect.ValueOf(arg)); err != nil {
			return nil, errors.Wrapf(err, "failed to marshal argument %d", i)
		}
		buf.WriteString("</param>")
	}

	buf.WriteString("</params></methodCall>\n")
	return buf.Bytes(), nil
}

// EncodeResponse builds an XML-RPC methodResponse document holding reply as its
// single parameter. Pointers are followed. Nil values fail to marshal unless
// allowNone is set.
func EncodeResponse(reply interface{}, allowNone bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodResponse><params><param>")

	enc := encoder{buf: &buf, allowNone: allowNone}
	if err := enc.encode(reflect.ValueOf(reply)); err != nil {
		return nil, errors.Wrap(err, "failed to marshal response")
	}

	buf.WriteString("</param></params></methodResponse>\n")
	return buf.Bytes(), nil
}

// ParseResponse decodes an XML-RPC methodResponse document. A fault response is
// returned as a *Fault error.
func ParseResponse(body []byte) (interface{}, error) {
	var doc methodResponse
	if err := unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse method response")
	}

	if doc.Fault != nil {
		decoded, err := doc.Fault.Value.decode()
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse fault")
		}
		members, ok := decoded.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("failed to parse fault: expected struct, got %s",
				TypeName(decoded))
		}

		fault := &Fault{}
		if code, ok := members["faultCode"].(int64); ok {
			fault.Code = int(code)
		}
		if s, ok := members["faultString"].(string); ok {
			fault.String = s
		}
		return nil, fault
	}

	if len(doc.Params) != 1 {
		return nil, errors.Errorf("failed to parse method response: expected 1 parameter, got %d",
			len(doc.Params))
	}

	result, err := doc.Params[0].Value.decode()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse method response")
	}
	return result, nil
}

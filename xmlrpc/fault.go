package xmlrpc

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// FaultApplication is the fault code used for errors which do not carry their
// own code
const FaultApplication = 1

// Fault is an XML-RPC fault. Service methods may return a *Fault to choose the
// code sent to the client.
type Fault struct {
	// Code is the faultCode member
	Code int `xmlrpc:"faultCode"`

	// String is the faultString member
	String string `xmlrpc:"faultString"`
}

// NewFault creates a Fault with a formatted message
func NewFault(code int, format string, args ...interface{}) *Fault {
	return &Fault{
		Code:   code,
		String: fmt.Sprintf(format, args...),
	}
}

// Error implements error
func (f *Fault) Error() string {
	return fmt.Sprintf("fault %d: %s", f.Code, f.String)
}

// AsFault finds a *Fault in err's chain, or wraps err's message in an
// application fault
func AsFault(err error) *Fault {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault
	}
	return &Fault{Code: FaultApplication, String: err.Error()}
}

// EncodeFault builds an XML-RPC fault response document
func EncodeFault(f *Fault) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodResponse><fault>")

	// Only a code outside the XML-RPC int range fails to encode
	if err := (encoder{buf: &buf}).encode(reflect.ValueOf(*f)); err != nil {
		buf.Reset()
		buf.WriteString(xmlHeader)
		buf.WriteString("<methodResponse><fault>")
		fallback := Fault{Code: FaultApplication, String: f.String}
		_ = (encoder{buf: &buf}).encode(reflect.ValueOf(fallback))
	}

	buf.WriteString("</fault></methodResponse>\n")
	return buf.Bytes()
}

package xmlrpc

import (
	"context"
	"io/ioutil"
	"net/http"

	"github.com/gorilla/rpc"
	"github.com/pkg/errors"
)

// Resolver maps an XML-RPC method name to the "Service.Method" name of a
// gorilla/rpc service method
type Resolver interface {
	Resolve(method string) (string, bool)
}

// Codec is a gorilla/rpc codec for XML-RPC
type Codec struct {
	// Resolver translates method names. Names it does not know are passed to
	// gorilla/rpc unchanged.
	Resolver Resolver

	// AllowNone permits nil replies to be marshaled as <nil/>
	AllowNone bool
}

// NewCodec creates a Codec
func NewCodec(resolver Resolver, allowNone bool) *Codec {
	return &Codec{
		Resolver:  resolver,
		AllowNone: allowNone,
	}
}

type callCtxKey struct{}

// WithCall stores an already parsed call in ctx. The Codec uses it instead of
// parsing the request body again.
func WithCall(ctx context.Context, call *Call) context.Context {
	return context.WithValue(ctx, callCtxKey{}, call)
}

// CallFromContext returns the call stored by WithCall
func CallFromContext(ctx context.Context) (*Call, bool) {
	call, ok := ctx.Value(callCtxKey{}).(*Call)
	return call, ok
}

// NewRequest implements rpc.Codec
func (c *Codec) NewRequest(r *http.Request) rpc.CodecRequest {
	if call, ok := CallFromContext(r.Context()); ok {
		return &CodecRequest{codec: c, call: call}
	}

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return &CodecRequest{codec: c, err: errors.Wrap(err, "failed to read request body")}
	}

	call, err := ParseCall(body)
	return &CodecRequest{codec: c, call: call, err: err}
}

// CodecRequest decodes one XML-RPC call and encodes its response
type CodecRequest struct {
	codec *Codec
	call  *Call
	err   error
}

// Method implements rpc.CodecRequest
func (c *CodecRequest) Method() (string, error) {
	if c.err != nil {
		return "", c.err
	}

	if c.codec.Resolver != nil {
		if name, ok := c.codec.Resolver.Resolve(c.call.Method); ok {
			return name, nil
		}
	}
	return c.call.Method, nil
}

// ReadRequest implements rpc.CodecRequest
func (c *CodecRequest) ReadRequest(args interface{}) error {
	if c.err != nil {
		return c.err
	}
	return c.call.Assign(args)
}

// WriteResponse implements rpc.CodecRequest. Method errors and replies which
// cannot be marshaled are both written as XML-RPC faults.
func (c *CodecRequest) WriteResponse(w http.ResponseWriter, reply interface{}, methodErr error) error {
	var body []byte
	if methodErr != nil {
		body = EncodeFault(AsFault(methodErr))
	} else {
		encoded, err := EncodeResponse(reply, c.codec.AllowNone)
		if err != nil {
			body = EncodeFault(AsFault(err))
		} else {
			body = encoded
		}
	}

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(body)
	return err
}

package dispatch

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/kscout/crossdomain-xmlrpc/xmlrpc"

	"github.com/Noah-Huppert/golog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Arith is a service used by the dispatch tests
type Arith struct{}

// Operands are the arguments of Arith methods
type Operands struct {
	X int
	Y int
}

func (a *Arith) Add(r *http.Request, args *Operands, reply *int) error {
	*reply = args.X + args.Y
	return nil
}

func (a *Arith) Divide(r *http.Request, args *Operands, reply *float64) error {
	if args.Y == 0 {
		return xmlrpc.NewFault(4, "division by zero")
	}
	*reply = float64(args.X) / float64(args.Y)
	return nil
}

func (a *Arith) Fail(r *http.Request, args *NoArgs, reply *int) error {
	return errors.New("boom")
}

func (a *Arith) Explode(r *http.Request, args *NoArgs, reply *int) error {
	panic("kaboom")
}

func (a *Arith) Nothing(r *http.Request, args *NoArgs, reply *interface{}) error {
	*reply = nil
	return nil
}

// Help implements Helper
func (a *Arith) Help(method string) string {
	if method == "arith.add" {
		return "Adds two integers together"
	}
	return ""
}

func newTestRegistry(t *testing.T, opts Options) *Registry {
	registry := NewRegistry(opts, golog.NewStdLogger("dispatch-test"))
	require.NoError(t, registry.RegisterService(&Arith{}, "arith"))
	require.NoError(t, registry.RegisterIntrospection())
	return registry
}

// call dispatches a method call and parses the response
func call(t *testing.T, d Dispatcher, method string, args ...interface{}) (interface{}, error) {
	body, err := xmlrpc.EncodeCall(method, args...)
	require.NoError(t, err)

	resp, err := d.Dispatch(context.Background(), "/rpc", body)
	require.NoError(t, err, "dispatch should produce a response document")

	return xmlrpc.ParseResponse(resp)
}

// TestDispatchSuccess ensures registered methods can be called by their published
// and Go names
func TestDispatchSuccess(t *testing.T) {
	registry := newTestRegistry(t, Options{})

	result, err := call(t, registry, "arith.add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result)

	result, err = call(t, registry, "arith.Divide", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.5, result)
}

// TestDispatchDefaultService ensures dot-less names resolve against the default
// service
func TestDispatchDefaultService(t *testing.T) {
	registry := newTestRegistry(t, Options{DefaultService: "arith"})

	result, err := call(t, registry, "add", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result)

	_, err = call(t, newTestRegistry(t, Options{}), "add", 1, 1)
	assert.Error(t, err)
}

// TestDispatchFaults ensures XML-RPC level problems are answered with faults
func TestDispatchFaults(t *testing.T) {
	registry := newTestRegistry(t, Options{})

	_, err := call(t, registry, "arith.missing")
	assert.Equal(t, &xmlrpc.Fault{
		Code:   xmlrpc.FaultApplication,
		String: `method "arith.missing" is not supported`,
	}, err)

	_, err = call(t, registry, "arith.divide", 1, 0)
	assert.Equal(t, &xmlrpc.Fault{Code: 4, String: "division by zero"}, err)

	_, err = call(t, registry, "arith.fail")
	assert.Equal(t, &xmlrpc.Fault{Code: xmlrpc.FaultApplication, String: "boom"}, err)

	_, err = call(t, registry, "arith.add", "one", "two")
	fault, ok := err.(*xmlrpc.Fault)
	require.True(t, ok, "bad arguments should produce a fault, got %v", err)
	assert.Equal(t, xmlrpc.FaultApplication, fault.Code)

	resp, err := registry.Dispatch(context.Background(), "/rpc", []byte("<not-xml"))
	require.NoError(t, err)
	_, err = xmlrpc.ParseResponse(resp)
	assert.IsType(t, &xmlrpc.Fault{}, err)
}

// TestDispatchAllowNone ensures nil replies depend on AllowNone
func TestDispatchAllowNone(t *testing.T) {
	_, err := call(t, newTestRegistry(t, Options{}), "arith.nothing")
	assert.IsType(t, &xmlrpc.Fault{}, err)

	result, err := call(t, newTestRegistry(t, Options{AllowNone: true}), "arith.nothing")
	require.NoError(t, err)
	assert.Nil(t, result)
}

// TestDispatchPanic ensures a panicking method yields an InternalError with a
// stack trace instead of crashing
func TestDispatchPanic(t *testing.T) {
	registry := newTestRegistry(t, Options{})

	body, err := xmlrpc.EncodeCall("arith.explode")
	require.NoError(t, err)

	resp, err := registry.Dispatch(context.Background(), "/rpc", body)
	assert.Nil(t, resp)

	var internal *InternalError
	require.True(t, errors.As(err, &internal), "expected *InternalError, got %T", err)
	assert.Contains(t, internal.Error(), "kaboom")
	assert.Contains(t, internal.Stack, "Explode")
}

// TestDispatchCanceled ensures a done context is an internal failure
func TestDispatchCanceled(t *testing.T) {
	registry := newTestRegistry(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body, err := xmlrpc.EncodeCall("arith.add", 1, 2)
	require.NoError(t, err)

	_, err = registry.Dispatch(ctx, "/rpc", body)
	assert.IsType(t, &InternalError{}, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

// TestIntrospection ensures the system.* methods describe the registry
func TestIntrospection(t *testing.T) {
	registry := newTestRegistry(t, Options{})

	result, err := call(t, registry, "system.listMethods")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		"arith.add",
		"arith.divide",
		"arith.explode",
		"arith.fail",
		"arith.nothing",
		"system.listMethods",
		"system.methodHelp",
		"system.methodSignature",
	}, result)

	result, err = call(t, registry, "system.methodHelp", "arith.add")
	require.NoError(t, err)
	assert.Equal(t, "Adds two integers together", result)

	result, err = call(t, registry, "system.methodHelp", "arith.unknown")
	require.NoError(t, err)
	assert.Equal(t, "", result)

	result, err = call(t, registry, "system.methodSignature", "arith.add")
	require.NoError(t, err)
	assert.Equal(t, "signatures not supported", result)
}

// TestMultiPath ensures calls are routed by path
func TestMultiPath(t *testing.T) {
	paths := NewMultiPath()
	paths.Add("/rpc", newTestRegistry(t, Options{}))
	paths.Add("/RPC2", newTestRegistry(t, Options{DefaultService: "arith"}))

	assert.Equal(t, []string{"/RPC2", "/rpc"}, paths.Paths())

	body, err := xmlrpc.EncodeCall("add", 4, 4)
	require.NoError(t, err)

	resp, err := paths.Dispatch(context.Background(), "/RPC2", body)
	require.NoError(t, err)
	result, err := xmlrpc.ParseResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, int64(8), result)

	_, err = paths.Dispatch(context.Background(), "/other", body)
	assert.IsType(t, &InternalError{}, err)
}

// TestTraceback ensures plain errors still get a stack trace
func TestTraceback(t *testing.T) {
	trace := Traceback(errors.New("plain"))
	assert.Contains(t, trace, "plain")
	assert.Contains(t, trace, "TestTraceback")
}

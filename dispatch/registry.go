package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"reflect"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/kscout/crossdomain-xmlrpc/xmlrpc"

	"github.com/Noah-Huppert/golog"
	"github.com/gorilla/rpc"
	"github.com/pkg/errors"
)

// Options configures a Registry
type Options struct {
	// AllowNone permits nil values in responses
	AllowNone bool

	// DefaultService is the service used to resolve method names without a dot
	DefaultService string
}

// Helper is implemented by services which document their methods. Help receives
// the XML-RPC method name, ex., "demo.add".
type Helper interface {
	Help(method string) string
}

// methodEntry is a registered XML-RPC method
type methodEntry struct {
	// target is the gorilla/rpc "Service.Method" name
	target string

	// help is returned by system.methodHelp
	help string

	// listed is false for the upper case aliases of methods
	listed bool
}

// Registry holds the RPC methods of one server and dispatches XML-RPC calls to
// them using gorilla/rpc
type Registry struct {
	// server performs argument decoding and method invocation
	server *rpc.Server

	// defaultService resolves dot-less method names
	defaultService string

	// logger logs internal faults
	logger golog.Logger

	// mu guards methods
	mu sync.RWMutex

	// methods is keyed by XML-RPC method name
	methods map[string]methodEntry
}

// NewRegistry creates an empty Registry
func NewRegistry(opts Options, logger golog.Logger) *Registry {
	r := &Registry{
		server:         rpc.NewServer(),
		defaultService: opts.DefaultService,
		logger:         logger,
		methods:        map[string]methodEntry{},
	}
	r.server.RegisterCodec(xmlrpc.NewCodec(r, opts.AllowNone), xmlrpc.ContentType)

	return r
}

var (
	httpRequestType = reflect.TypeOf((*http.Request)(nil))
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
)

// isRPCMethod reports whether a method has the signature gorilla/rpc serves:
//
//	func (s *S) M(r *http.Request, args *A, reply *R) error
func isRPCMethod(m reflect.Method) bool {
	t := m.Type
	return t.NumIn() == 4 &&
		t.In(1) == httpRequestType &&
		t.In(2).Kind() == reflect.Ptr &&
		t.In(3).Kind() == reflect.Ptr &&
		t.NumOut() == 1 &&
		t.Out(0) == errorType
}

// lowerFirst lower cases the first letter of s
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

// RegisterService makes the methods of receiver callable. If name is empty the
// receiver's type name is used. A Go method M is published as "name.m" and can
// also be called as "name.M".
func (r *Registry) RegisterService(receiver interface{}, name string) error {
	if err := r.server.RegisterService(receiver, name); err != nil {
		return errors.Wrapf(err, "failed to register service %q", name)
	}

	if name == "" {
		name = reflect.Indirect(reflect.ValueOf(receiver)).Type().Name()
	}

	helper, _ := receiver.(Helper)

	r.mu.Lock()
	defer r.mu.Unlock()

	t := reflect.TypeOf(receiver)
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !isRPCMethod(m) {
			continue
		}

		target := name + "." + m.Name
		published := name + "." + lowerFirst(m.Name)

		entry := methodEntry{target: target, listed: true}
		if helper != nil {
			entry.help = helper.Help(published)
		}
		r.methods[published] = entry

		if target != published {
			entry.listed = false
			r.methods[target] = entry
		}
	}

	return nil
}

// RegisterIntrospection registers the system.listMethods, system.methodHelp and
// system.methodSignature methods
func (r *Registry) RegisterIntrospection() error {
	return r.RegisterService(&Introspection{registry: r}, IntrospectionService)
}

// Resolve implements xmlrpc.Resolver
func (r *Registry) Resolve(method string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.methods[method]; ok {
		return entry.target, true
	}

	if !strings.Contains(method, ".") && r.defaultService != "" {
		if entry, ok := r.methods[r.defaultService+"."+method]; ok {
			return entry.target, true
		}
	}

	return "", false
}

// Methods returns the sorted names of all published methods
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.methods))
	for name, entry := range r.methods {
		if entry.listed {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names
}

// Help returns the help text of a method, or an empty string
func (r *Registry) Help(method string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.methods[method].help
}

// Dispatch implements Dispatcher. XML-RPC level problems, ex., an unknown method,
// bad arguments or a method error, are returned as fault documents. Only a method
// panic, an unexpected gorilla/rpc response or a done context produce an
// *InternalError.
func (r *Registry) Dispatch(ctx context.Context, path string, body []byte) (resp []byte, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, NewInternalError(errors.Wrap(ctxErr, "dispatch abandoned"))
	}

	call, err := xmlrpc.ParseCall(body)
	if err != nil {
		return xmlrpc.EncodeFault(xmlrpc.AsFault(err)), nil
	}

	if _, ok := r.Resolve(call.Method); !ok {
		return xmlrpc.EncodeFault(xmlrpc.NewFault(xmlrpc.FaultApplication,
			"method %q is not supported", call.Method)), nil
	}

	httpReq, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, NewInternalError(errors.Wrap(err, "failed to build dispatch request"))
	}
	httpReq = httpReq.WithContext(xmlrpc.WithCall(ctx, call))
	httpReq.Header.Set("Content-Type", xmlrpc.ContentType)

	defer func() {
		if recovery := recover(); recovery != nil {
			stack := string(debug.Stack())
			r.logger.Errorf("panicked while calling %s: %#v", call.Method, recovery)
			r.logger.Error(stack)

			resp = nil
			err = &InternalError{
				Err:   fmt.Errorf("panic while calling %s: %v", call.Method, recovery),
				Stack: stack,
			}
		}
	}()

	rec := newRecorder()
	r.server.ServeHTTP(rec, httpReq)

	switch rec.status {
	case http.StatusOK:
		return rec.body.Bytes(), nil
	case http.StatusBadRequest:
		// gorilla/rpc reports lookup and argument problems as plain text
		return xmlrpc.EncodeFault(xmlrpc.NewFault(xmlrpc.FaultApplication,
			"%s", strings.TrimSpace(rec.body.String()))), nil
	}

	return nil, NewInternalError(errors.Errorf("rpc server responded to %s with status %d: %s",
		call.Method, rec.status, strings.TrimSpace(rec.body.String())))
}

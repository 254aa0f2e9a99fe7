// Package services contains the XML-RPC services served by default.
package services

import (
	"net/http"
	"time"

	"github.com/kscout/crossdomain-xmlrpc/dispatch"
	"github.com/kscout/crossdomain-xmlrpc/xmlrpc"
)

// DemoService is the name Demo is registered under
const DemoService = "demo"

// FaultDemo is the fault code returned by Demo.Fail
const FaultDemo = 7

// Demo is a small service for checking that a server works from a browser
type Demo struct {
	// now returns the current time, nil uses time.Now
	now func() time.Time
}

// AddArgs are the arguments of demo.add
type AddArgs struct {
	X int
	Y int
}

// FailArgs are the arguments of demo.fail
type FailArgs struct {
	// Message is the fault string
	Message string
}

// Echo replies with its parameters
func (d *Demo) Echo(r *http.Request, args *[]interface{}, reply *[]interface{}) error {
	*reply = *args
	return nil
}

// Add replies with the sum of two integers
func (d *Demo) Add(r *http.Request, args *AddArgs, reply *int) error {
	*reply = args.X + args.Y
	return nil
}

// Time replies with the current server time in UTC
func (d *Demo) Time(r *http.Request, args *dispatch.NoArgs, reply *time.Time) error {
	now := time.Now
	if d.now != nil {
		now = d.now
	}

	*reply = now().UTC()
	return nil
}

// Fail always replies with a fault
func (d *Demo) Fail(r *http.Request, args *FailArgs, reply *bool) error {
	msg := args.Message
	if msg == "" {
		msg = "demo fault"
	}
	return xmlrpc.NewFault(FaultDemo, "%s", msg)
}

// Help implements dispatch.Helper
func (d *Demo) Help(method string) string {
	switch method {
	case "demo.echo":
		return "demo.echo(...) => [...]\n\nReturns its parameters as an array."
	case "demo.add":
		return "demo.add(1, 2) => 3\n\nAdds two integers together."
	case "demo.time":
		return "demo.time() => dateTime.iso8601\n\nReturns the current server time in UTC."
	case "demo.fail":
		return "demo.fail('message') => fault\n\nAlways fails with a fault."
	}
	return ""
}

// Register registers every service of this package with registry
func Register(registry *dispatch.Registry) error {
	return registry.RegisterService(&Demo{}, DemoService)
}

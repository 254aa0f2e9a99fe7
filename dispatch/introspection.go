package dispatch

import (
	"net/http"
)

// IntrospectionService is the service name of the introspection methods
const IntrospectionService = "system"

// signaturesNotSupported is the system.methodSignature answer for every method
const signaturesNotSupported = "signatures not supported"

// NoArgs is the argument type of methods which take no parameters
type NoArgs struct{}

// MethodName is the argument of system.methodHelp and system.methodSignature
type MethodName struct {
	// Name is the XML-RPC method name
	Name string
}

// Introspection serves the system.* methods of a Registry
type Introspection struct {
	registry *Registry
}

// ListMethods replies with the names of all published methods
func (s *Introspection) ListMethods(r *http.Request, args *NoArgs, reply *[]string) error {
	*reply = s.registry.Methods()
	return nil
}

// MethodHelp replies with the help text of a method
func (s *Introspection) MethodHelp(r *http.Request, args *MethodName, reply *string) error {
	*reply = s.registry.Help(args.Name)
	return nil
}

// MethodSignature replies that signatures are not available
func (s *Introspection) MethodSignature(r *http.Request, args *MethodName, reply *string) error {
	*reply = signaturesNotSupported
	return nil
}

// Help implements Helper
func (s *Introspection) Help(method string) string {
	switch method {
	case "system.listMethods":
		return "system.listMethods() => ['add', 'subtract', 'multiple']\n\n" +
			"Returns a list of the methods supported by the server."
	case "system.methodHelp":
		return "system.methodHelp('add') => \"Adds two integers together\"\n\n" +
			"Returns a string containing documentation for the specified method."
	case "system.methodSignature":
		return "system.methodSignature('add') => [double, int, int]\n\n" +
			"Returns a list describing the signature of the method. This server " +
			"does not describe signatures."
	}
	return ""
}

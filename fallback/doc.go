/*
Package fallback selects and invokes recovery handlers by the type of a failure.

A guarded method such as

	func (s *Service) Lookup(id string) (string, error)

is bound to fallback handlers sharing a name. A handler takes the receiver,
the guarded method's parameters and one trailing failure parameter, and
returns results assignable to the guarded method's:

	func (s *Service) Recover(id string, err *NotFoundError) (string, error)

The exported method with the fallback name is found by reflection. Handlers
reflection cannot see, unexported methods included, are added to a Registry
as method expressions:

	registry.Register(reflect.TypeOf(&Service{}), "Recover", (*Service).recoverTimeout)

Dispatch walks from the failure's runtime type towards error and runs the
first handler it meets, so a handler for a narrower failure always beats one
for a broader failure. Struct embedding defines the walk:

	type TimeoutError struct{ NetworkError } // supertype *NetworkError

Failures nothing handles are left to the caller to return unchanged.
*/
package fallback

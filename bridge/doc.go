// Package bridge exposes native Go values to scripts as ordinary script
// objects.
//
// A ClassBuilder declares the script-visible surface of a native type:
// methods and accessors live on a shared prototype, fields are copied onto
// every instance. Build turns the declaration into a Class bound to one
// engine. Every instance carries a checked arena handle under a private
// symbol; methods and accessors resolve their receiver through that handle
// on each call, so a receiver that is not a live instance of the class
// throws *errors.NativeTypeMismatchError instead of reaching the payload.
//
// Each exposed value carries one ownership tag. Borrowed values stay owned
// by Go code, which may Revoke the binding at any time. Owned values belong
// to the script object: they are released when the object is collected or
// when the engine is closed, whichever happens first. Values created by a
// script calling the class constructor are Owned.
//
// Script classes may extend a bridged class. The base constructor installs
// the handle on the derived instance, so inherited methods operate on that
// instance's own payload.
package bridge

// Package hostfuncs provides native Go implementations of the global
// functions a script context sees (console.log, setTimeout, and any
// application-defined extras).
//
// Handlers are collected into an immutable HandlerRegistry and installed
// into a goja object, usually the global object. Dotted names such as
// "console.log" create or reuse intermediate plain objects.
package hostfuncs

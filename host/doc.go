// Package host embeds a goja script engine and turns a directory tree of
// script files into a namespaced library of constructible factories.
//
// An Engine owns one runtime and the context built on top of it (global
// object, installed host functions, native handle arena and the namespace
// graph). Every script operation takes a *Guard obtained from Engine.Enter
// or Engine.Run, which proves the caller holds the context. Guards are not
// reentrant and must not be kept past the call that needed them.
//
// The Loader mirrors directories as nested namespace objects and files as
// factories. Each script module evaluates to a constructible wrapper that is
// constructed once with no arguments; the result is the factory (see
// entities.ExportConstructThenUse). Factories build Instances whose optional
// update hook is driven from Go, one instance at a time or in batches through
// a Driver.
package host

package ports

// SkipHandler is called when the loader leaves an entry out of the namespace
// graph, either because a load filter rejected it or because its module
// failed in skip mode.
type SkipHandler interface {
	// OnSkip is called once per skipped entry.
	// path: slash-separated path relative to the load root
	// reason: human-readable reason
	OnSkip(path string, reason string)
}

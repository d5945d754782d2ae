// Package wazero compiles WebAssembly modules found in a script tree into
// native factories.
//
// A Compiler owns one wazero runtime. Each .wasm file becomes a bridged
// class named after the file stem: constructing it from a script
// instantiates a fresh module instance owned by the script object, and
// every exported function becomes a method. Numeric arguments and results
// are converted according to the function signature (i32, i64, f32, f64).
//
// Modules may import functions from the host module (default
// "embjs_host"). Strings cross the boundary as a packed i64 holding the
// guest pointer in the upper and the length in the lower 32 bits:
//
//	print(packed i64)        writes the bytes as one line to the output sink
//	log_message(packed i64)  logs {"level": ..., "message": ...} JSON, or
//	                         the raw bytes when they are not JSON
//
// The compiler is a runtime-layer resource: register it with
// host.WithRuntimeResource so it is closed after the context.
//
//	c, err := wazero.NewCompiler(ctx, wazero.WithOutput(os.Stdout))
//	if err != nil {
//	    return err
//	}
//	engine, err := host.NewEngine(host.WithRuntimeResource(c))
//	...
//	report, err := engine.LoadAll(dir, host.WithModuleCompiler(".wasm", c))
package wazero

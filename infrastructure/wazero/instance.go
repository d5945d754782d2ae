package wazero

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"github.com/tetratelabs/wazero/api"
)

// Instance is one instantiated module behind a script object.
type Instance struct {
	name   string
	module api.Module
	ctx    context.Context
}

// Call invokes an exported function with encoded parameters.
func (i *Instance) Call(fn string, params ...uint64) ([]uint64, error) {
	f := i.module.ExportedFunction(fn)
	if f == nil {
		return nil, fmt.Errorf("export %q not found", fn)
	}
	results, err := f.Call(i.ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", i.name, fn, err)
	}
	return results, nil
}

// MemorySize returns the size of the exported memory in bytes, or 0 when
// the module exports none.
func (i *Instance) MemorySize() uint32 {
	if mem := exportedMemory(i.module); mem != nil {
		return mem.Size()
	}
	return 0
}

// exportedMemory returns the memory mod exports, or nil. Module.Memory
// wraps a nil instance for memory-less modules and cannot be nil-checked.
func exportedMemory(mod api.Module) api.Memory {
	for name := range mod.ExportedMemoryDefinitions() {
		if mem := mod.ExportedMemory(name); mem != nil {
			return mem
		}
	}
	return nil
}

// Close closes the module instance.
func (i *Instance) Close() error {
	return i.module.Close(i.ctx)
}

func encodeParams(def api.FunctionDefinition, args []goja.Value) ([]uint64, error) {
	types := def.ParamTypes()
	params := make([]uint64, len(types))
	for idx, t := range types {
		v := goja.Undefined()
		if idx < len(args) {
			v = args[idx]
		}
		switch t {
		case api.ValueTypeI32:
			params[idx] = api.EncodeI32(int32(v.ToInteger())) //nolint:gosec // G115: wraps like ToInt32
		case api.ValueTypeI64:
			params[idx] = api.EncodeI64(v.ToInteger())
		case api.ValueTypeF32:
			params[idx] = api.EncodeF32(float32(v.ToFloat()))
		case api.ValueTypeF64:
			params[idx] = api.EncodeF64(v.ToFloat())
		default:
			return nil, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(t))
		}
	}
	return params, nil
}

func decodeResults(vm *goja.Runtime, def api.FunctionDefinition, results []uint64) (goja.Value, error) {
	types := def.ResultTypes()
	vals := make([]any, len(results))
	for idx, r := range results {
		switch types[idx] {
		case api.ValueTypeI32:
			vals[idx] = api.DecodeI32(r)
		case api.ValueTypeI64:
			vals[idx] = int64(r) //nolint:gosec // G115: two's complement reinterpretation
		case api.ValueTypeF32:
			vals[idx] = float64(api.DecodeF32(r))
		case api.ValueTypeF64:
			vals[idx] = api.DecodeF64(r)
		default:
			return nil, fmt.Errorf("unsupported result type %s", api.ValueTypeName(types[idx]))
		}
	}

	switch len(vals) {
	case 0:
		return nil, nil
	case 1:
		return vm.ToValue(vals[0]), nil
	default:
		return vm.NewArray(vals...), nil
	}
}

// Package natives provides native types exposed to scripts through the
// bridge.
package natives

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/dop251/goja"

	"github.com/Tsuguri/embedded-js-tests/bridge"
	"github.com/Tsuguri/embedded-js-tests/host"
)

// VectorClassName is the global constructor name.
const VectorClassName = "Vector"

// SomePropValue is what the some_prop getter always returns.
const SomePropValue = 42

// Vector is a three component vector. Scripts read and write the
// components live through accessors.
type Vector struct {
	X, Y, Z float64

	mu       sync.Mutex
	assigned []goja.Value
}

// Length returns the Euclidean norm.
func (v *Vector) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add returns v + o.
func (v *Vector) Add(o *Vector) *Vector {
	return &Vector{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v *Vector) String() string {
	return fmt.Sprintf("Vector(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Assigned returns the values scripts wrote to some_prop, oldest first.
func (v *Vector) Assigned() []goja.Value {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]goja.Value(nil), v.assigned...)
}

func (v *Vector) record(val goja.Value) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.assigned = append(v.assigned, val)
}

// NewVectorClass declares the Vector class. log() writes one line to out.
func NewVectorClass(out io.Writer) *bridge.ClassBuilder[*Vector] {
	return bridge.NewClass[*Vector](VectorClassName).
		Constructor(func(c bridge.Call[*Vector]) (*Vector, error) {
			return &Vector{X: component(c.Arg(0)), Y: component(c.Arg(1)), Z: component(c.Arg(2))}, nil
		}).
		Method("log", func(v *Vector, _ bridge.Call[*Vector]) (goja.Value, error) {
			_, _ = fmt.Fprintln(out, v.String())
			return nil, nil
		}).
		Method("length", func(v *Vector, c bridge.Call[*Vector]) (goja.Value, error) {
			return c.Runtime.ToValue(v.Length()), nil
		}).
		Method("add", func(v *Vector, c bridge.Call[*Vector]) (goja.Value, error) {
			o, err := c.Unwrap(c.Arg(0))
			if err != nil {
				return nil, err
			}
			return c.Wrap(v.Add(o))
		}).
		Accessor("x", getComponent(func(v *Vector) *float64 { return &v.X }), setComponent(func(v *Vector) *float64 { return &v.X })).
		Accessor("y", getComponent(func(v *Vector) *float64 { return &v.Y }), setComponent(func(v *Vector) *float64 { return &v.Y })).
		Accessor("z", getComponent(func(v *Vector) *float64 { return &v.Z }), setComponent(func(v *Vector) *float64 { return &v.Z })).
		Accessor("some_prop",
			func(_ *Vector, c bridge.Call[*Vector]) (goja.Value, error) {
				return c.Runtime.ToValue(SomePropValue), nil
			},
			func(v *Vector, val goja.Value, _ bridge.Call[*Vector]) error {
				v.record(val)
				return nil
			}).
		Field("kind", func(*Vector) any { return "vector" })
}

// InstallVector builds the Vector class and installs its constructor in the
// engine root namespace.
func InstallVector(g *host.Guard, out io.Writer) (*bridge.Class[*Vector], error) {
	cls, err := NewVectorClass(out).Build(g)
	if err != nil {
		return nil, err
	}
	if _, err := cls.Install(g, nil); err != nil {
		return nil, err
	}
	return cls, nil
}

func component(v goja.Value) float64 {
	if v == nil || goja.IsUndefined(v) {
		return 0
	}
	return v.ToFloat()
}

func getComponent(field func(*Vector) *float64) bridge.GetterFunc[*Vector] {
	return func(v *Vector, c bridge.Call[*Vector]) (goja.Value, error) {
		return c.Runtime.ToValue(*field(v)), nil
	}
}

func setComponent(field func(*Vector) *float64) bridge.SetterFunc[*Vector] {
	return func(v *Vector, val goja.Value, _ bridge.Call[*Vector]) error {
		*field(v) = component(val)
		return nil
	}
}

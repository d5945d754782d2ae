package entities

import "fmt"

// Ownership records who is responsible for destroying a native value that
// has been exposed to scripts. Every exposed value carries exactly one tag.
type Ownership int

const (
	// Borrowed means native code keeps ownership. The script object is a
	// view that native code may revoke at any time; the bridge never frees
	// the payload.
	Borrowed Ownership = iota + 1

	// Owned means ownership was transferred to the script object. The payload
	// is released when the script heap drops the object or when the context
	// is torn down, whichever comes first.
	Owned
)

func (o Ownership) String() string {
	switch o {
	case Borrowed:
		return "borrowed"
	case Owned:
		return "owned"
	default:
		return fmt.Sprintf("ownership(%d)", int(o))
	}
}

// Valid reports whether o is one of the declared disciplines.
func (o Ownership) Valid() bool {
	return o == Borrowed || o == Owned
}

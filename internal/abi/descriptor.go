package abi

import "fmt"

// Shape enumerates the calling shapes the boundary supports. Every loadable
// module exports entry points matching one of these; the shape, not any
// particular language's calling convention, is the contract surface.
type Shape int

const (
	// ShapeInt is ()-> i32.
	ShapeInt Shape = iota
	// ShapeStringInt is (string) -> i32.
	ShapeStringInt
	// ShapeTwoStringInt is (string, string) -> i32.
	ShapeTwoStringInt
	// ShapeStringOut is (string) -> string through an out-parameter; the
	// i32 return is a status code.
	ShapeStringOut
)

// String returns the configuration spelling of the shape.
func (s Shape) String() string {
	switch s {
	case ShapeInt:
		return "int"
	case ShapeStringInt:
		return "string_int"
	case ShapeTwoStringInt:
		return "two_string_int"
	case ShapeStringOut:
		return "string_out"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ParseShape converts a configuration string into a Shape.
func ParseShape(s string) (Shape, error) {
	switch s {
	case "int":
		return ShapeInt, nil
	case "string_int":
		return ShapeStringInt, nil
	case "two_string_int":
		return ShapeTwoStringInt, nil
	case "string_out":
		return ShapeStringOut, nil
	default:
		return 0, fmt.Errorf("unknown call shape %q", s)
	}
}

// argCount returns the number of string arguments the shape takes.
func (s Shape) argCount() int {
	switch s {
	case ShapeStringInt, ShapeStringOut:
		return 1
	case ShapeTwoStringInt:
		return 2
	default:
		return 0
	}
}

// Descriptor describes one supported call. It is pure metadata: it owns
// nothing and is never mutated after construction.
type Descriptor struct {
	Shape Shape
	// ZeroIsFailure marks call sites whose contract defines a zero result
	// as failure. The default treats any non-negative result as success.
	ZeroIsFailure bool
}

package registry

import "fmt"

// LoadError indicates one module could not be opened, compiled, or
// instantiated. Fatal to that load attempt, non-fatal to a batch scan.
type LoadError struct {
	Name string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load module %s from %s: %v", e.Name, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates no handle is registered under the name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module not found: %s", e.Name)
}

// IncompatibleABIError indicates a module declared an ABI version outside
// the range the host supports.
type IncompatibleABIError struct {
	Name       string
	Declared   string
	Constraint string
}

func (e *IncompatibleABIError) Error() string {
	return fmt.Sprintf("module %s declares ABI %s, host requires %s",
		e.Name, e.Declared, e.Constraint)
}

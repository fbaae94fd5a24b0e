package sandbox

import "fmt"

// RootNotFoundError indicates the real root path backing a container does
// not exist. Creation fails closed: no container id is allocated.
type RootNotFoundError struct {
	Path string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("container root not found: %s", e.Path)
}

// NotFoundError indicates no container exists under the given id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("container not found: %s", e.ID)
}

// ContainerClosedError indicates an operation against a torn-down container.
type ContainerClosedError struct {
	ID string
}

func (e *ContainerClosedError) Error() string {
	return fmt.Sprintf("container closed: %s", e.ID)
}

// OperationNotPermittedError indicates an operation outside the allow-list.
// New operation kinds are blocked by default until explicitly added.
type OperationNotPermittedError struct {
	Operation string
}

func (e *OperationNotPermittedError) Error() string {
	return fmt.Sprintf("operation not permitted in container: %s", e.Operation)
}

// RevisionNotFoundError indicates show-revision could not find the target.
type RevisionNotFoundError struct {
	Revision string
}

func (e *RevisionNotFoundError) Error() string {
	return fmt.Sprintf("revision not found: %s", e.Revision)
}

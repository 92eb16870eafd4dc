package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// ErrDirectoryClaimed is returned when a second input maps to an output
// directory already owned by another input in the same run.
var ErrDirectoryClaimed = errors.New("output directory already claimed")

// CollisionResolver tracks which input owns each output directory during a
// run. All methods are goroutine-safe.
type CollisionResolver struct {
	mu     sync.Mutex
	owners map[string]string // cleaned output dir → input path that owns it
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{owners: make(map[string]string)}
}

// Claim records input as the owner of dir. Claiming a directory again for the
// same input succeeds; claiming it for a different input fails with an error
// wrapping [ErrDirectoryClaimed] that names the current owner.
func (cr *CollisionResolver) Claim(dir, input string) error {
	key := filepath.Clean(dir)

	cr.mu.Lock()
	defer cr.mu.Unlock()

	owner, exists := cr.owners[key]
	if exists && owner != input {
		return fmt.Errorf("%w: %s is used by %s", ErrDirectoryClaimed, key, owner)
	}
	cr.owners[key] = input
	return nil
}

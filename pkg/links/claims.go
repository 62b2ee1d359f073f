package links

import "sync"

// Claims records which task owns each target path during one run
type Claims struct {
	mu     sync.Mutex
	owners map[string]string
}

// NewClaims creates an empty registry
func NewClaims() *Claims {
	return &Claims{owners: make(map[string]string)}
}

// Claim makes taskID the owner of target unless another task already is.
// It returns the owner and whether taskID holds the claim.
func (c *Claims) Claim(taskID, target string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if owner, ok := c.owners[target]; ok && owner != taskID {
		return owner, false
	}
	c.owners[target] = taskID
	return taskID, true
}

package engine

import "fmt"

// OwnerRotator assigns leads to configured owners round robin. The cursor is
// a plain bounded index so the sequence is deterministic for a fixed owner
// list and call order.
type OwnerRotator struct {
	owners []Owner
	index  int
}

// NewOwnerRotator validates the owner list: it must be non-empty and every
// owner must carry an id. Validation failure is fatal to the run, not
// per-call.
func NewOwnerRotator(owners []Owner) (*OwnerRotator, error) {
	if len(owners) == 0 {
		return nil, &ValidationError{Field: "lead_owners", Reason: "no lead owners configured"}
	}
	for i, o := range owners {
		if o.ID == "" {
			return nil, &ValidationError{
				Field:  "lead_owners",
				Reason: fmt.Sprintf("owner %q at position %d has no id", o.Name, i),
			}
		}
	}
	return &OwnerRotator{owners: owners}, nil
}

// Next returns the next owner in the cycle and advances the cursor.
func (r *OwnerRotator) Next() Owner {
	o := r.owners[r.index]
	r.index = (r.index + 1) % len(r.owners)
	return o
}

// Match returns the owner whose display name equals name exactly. Named
// assignment does not advance the cursor.
func (r *OwnerRotator) Match(name string) (Owner, bool) {
	if name == "" {
		return Owner{}, false
	}
	for _, o := range r.owners {
		if o.Name == name {
			return o, true
		}
	}
	return Owner{}, false
}

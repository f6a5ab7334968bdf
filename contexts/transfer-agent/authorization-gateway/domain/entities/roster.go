package entities

// Roster is the signer set and ratification threshold. Invariant: members
// are unique and 1 <= Threshold <= len(Members).
type Roster struct {
	Members   []string
	Threshold int
}

func (r Roster) Clone() Roster {
	cloned := r
	cloned.Members = append([]string(nil), r.Members...)
	return cloned
}

func (r Roster) Contains(member string) bool {
	for _, existing := range r.Members {
		if existing == member {
			return true
		}
	}
	return false
}

// Add appends a new member. Returns false when already present.
func (r *Roster) Add(member string) bool {
	if r.Contains(member) {
		return false
	}
	r.Members = append(r.Members, member)
	return true
}

// Remove drops a member. Returns false when absent.
func (r *Roster) Remove(member string) bool {
	for i, existing := range r.Members {
		if existing == member {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return true
		}
	}
	return false
}

// ValidThreshold reports whether a candidate threshold fits the current
// membership.
func (r Roster) ValidThreshold(threshold int) bool {
	return threshold >= 1 && threshold <= len(r.Members)
}

package entities

import "time"

// Operation is one proposed privileged action moving through the N-of-M
// state machine. Confirmations only ever hold current or former roster
// members who ratified; once Executed flips true the operation is immutable.
type Operation struct {
	OperationID   uint64
	Command       Command
	Value         uint64
	Confirmations []string
	Executed      bool
	SubmittedAt   time.Time
}

func (o Operation) Clone() Operation {
	cloned := o
	cloned.Confirmations = append([]string(nil), o.Confirmations...)
	return cloned
}

func (o Operation) ConfirmedBy(member string) bool {
	for _, confirmed := range o.Confirmations {
		if confirmed == member {
			return true
		}
	}
	return false
}

// Confirm records member's ratification. Returns false when the member has
// already confirmed.
func (o *Operation) Confirm(member string) bool {
	if o.ConfirmedBy(member) {
		return false
	}
	o.Confirmations = append(o.Confirmations, member)
	return true
}

// ConfirmationCount reports how many confirmations come from current roster
// members. A removed member's confirmation stays on the record but no longer
// counts toward the threshold.
func (o Operation) ConfirmationCount(roster Roster) int {
	count := 0
	for _, confirmed := range o.Confirmations {
		if roster.Contains(confirmed) {
			count++
		}
	}
	return count
}

// RevokeConfirmation withdraws member's ratification. Returns false when the
// member had not confirmed.
func (o *Operation) RevokeConfirmation(member string) bool {
	for i, confirmed := range o.Confirmations {
		if confirmed == member {
			o.Confirmations = append(o.Confirmations[:i], o.Confirmations[i+1:]...)
			return true
		}
	}
	return false
}

// ExpiredAt reports whether the freshness window had elapsed at the given
// instant. A pure function of SubmittedAt; executed operations may still
// report expired.
func (o Operation) ExpiredAt(now time.Time, window time.Duration) bool {
	return now.After(o.SubmittedAt.Add(window))
}

// HoldElapsedAt reports whether the timed hold had elapsed at the given
// instant.
func (o Operation) HoldElapsedAt(now time.Time, hold time.Duration) bool {
	return !now.Before(o.SubmittedAt.Add(hold))
}

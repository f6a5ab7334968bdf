package entities

// ComplianceFlags are registrar-set, last-write-wins, and never expire.
type ComplianceFlags struct {
	Frozen         bool
	BrokerApproved bool
}

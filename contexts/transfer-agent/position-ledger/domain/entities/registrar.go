package entities

type RegistrarKind string

const (
	// RegistrarKindDirect is a single pre-authenticated key.
	RegistrarKindDirect RegistrarKind = "direct"
	// RegistrarKindGateway delegates the role to an authorization gateway.
	// The transition to this kind is one-way.
	RegistrarKindGateway RegistrarKind = "gateway"
)

// RegistrarPrincipal is the identity allowed to perform privileged ledger
// mutations, either a direct key or a gateway acting as principal.
type RegistrarPrincipal struct {
	Kind    RegistrarKind
	Address string
}

func (p RegistrarPrincipal) Authorizes(caller string) bool {
	return p.Address != "" && caller == p.Address
}

// Locked reports whether the role can no longer be reassigned.
func (p RegistrarPrincipal) Locked() bool {
	return p.Kind == RegistrarKindGateway
}

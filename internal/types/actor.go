// README: Caller identity supplied by the authentication collaborator.
package types

type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// Actor is an already-verified (actorId, actorRole) pair. For drivers the ID
// is the driver record id.
type Actor struct {
	ID   ID
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// System is the actor used for transitions driven by the process itself,
// such as the movement simulator.
var System = Actor{ID: "system", Role: RoleAdmin}

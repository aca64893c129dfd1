package domain

type Role string

const (
	RoleCustomer      Role = "CUSTOMER"
	RoleStationMaster Role = "STATION_MASTER"
	RoleAdmin         Role = "ADMIN"
)

// Actor is the authenticated principal attached to every request.
// Authentication itself happens outside this service; we only consume
// the id and role the identity provider put in the token.
type Actor struct {
	ID   int32 `json:"id"`
	Role Role  `json:"role"`
}

// IsStaff reports whether the actor may perform operational actions
// (approve bookings, force-close rides, settle penalties).
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleStationMaster
}

// Principal is a directory entry mirrored from the identity system.
// Used for notification fan-out and reporting rollups only.
type Principal struct {
	ID    int32  `json:"id"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

package models

// Role is the capability level of a connection.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// ViewerUsername is the display identity of an unauthenticated connection.
const ViewerUsername = "Viewer"

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleOperator:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r includes every capability of other.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleOperator, RoleAdmin:
		return true
	}
	return false
}

// Principal identifies who issued a command.
type Principal struct {
	Role     Role   `json:"role"`
	Username string `json:"username"`
}

// Viewer returns the principal every connection starts with.
func Viewer() Principal {
	return Principal{Role: RoleViewer, Username: ViewerUsername}
}

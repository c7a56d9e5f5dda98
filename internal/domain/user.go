package domain

// User roles. The portal a demo user signs into maps onto one of these.
const (
	RoleSuperAdmin   = "super_admin"
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleReceptionist = "receptionist"
	RolePharmacist   = "pharmacist"
	RoleTechnician   = "technician"
	RoleBilling      = "billing"
	RoleHR           = "hr"
	RoleProcedures   = "procedures"
)

type User struct {
	ID       string `db:"id" json:"id"`
	Email    string `db:"email" json:"email"`
	Name     string `db:"name" json:"name"`
	Hash     string `db:"password_hash" json:"-"`
	Role     string `db:"role" json:"role"`
	ClientID string `db:"client_id" json:"client_id"`
}

func (u *User) IsSuperAdmin() bool { return u != nil && u.Role == RoleSuperAdmin }

package domain

// Role names carried in access tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

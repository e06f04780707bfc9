package entities

// User is an admin-console account (operators and platform admins).
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	TenantID     int    `json:"tenant_id"` // 0 for platform admins
}

package domain

// Project is a tenant container. Directory users are deemed to live entirely
// within the single configured default domain, so every project they touch
// belongs to that domain.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	DomainID string `json:"domain_id"`
}

// Role is a named capability referenced by grants.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoleGrant is the set of roles a user holds on one project.
type RoleGrant struct {
	UserID    string   `json:"user_id"`
	ProjectID string   `json:"project_id"`
	RoleIDs   []string `json:"role_ids"`
}

// RoleAssignment is a single (user, project, role) row, the unit the
// relational store persists grants as.
type RoleAssignment struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	RoleID    string `json:"role_id"`
}

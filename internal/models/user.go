package models

// User is the account record supplied by the user service. The auth service
// never persists users; this shape only passes through login and decode
// responses after whitelist projection.
type User struct {
	ID          string                 `json:"id"`
	FirstName   string                 `json:"firstName,omitempty"`
	LastName    string                 `json:"lastName,omitempty"`
	MiddleName  string                 `json:"middleName,omitempty"`
	Email       string                 `json:"email,omitempty"`
	Roles       []string               `json:"roles,omitempty"`
	Scopes      []string               `json:"scopes,omitempty"`
	Deactivated bool                   `json:"deactivated,omitempty"`
	Profile     map[string]interface{} `json:"profile,omitempty"`

	// Credential fields the user service may leak; stripped unconditionally
	// by the whitelist projection.
	Password string `json:"password,omitempty"`
	Salt     string `json:"salt,omitempty"`
	HashDate string `json:"hashDate,omitempty"`
}

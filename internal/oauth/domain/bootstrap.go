package domain

// BootstrapData is the seed material for the one-time bootstrap: the initial
// admin user and the first confidential client.
type BootstrapData struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
	ClientName    string
	ClientScopes  []string
}

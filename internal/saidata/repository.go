package saidata

// RepositoryPackage is one record retrieved from a package repository index
// (apt, dnf, brew, …), used as RAG input. Identity is (Name, RepositoryName).
type RepositoryPackage struct {
	Name           string
	Version        string
	Description    string
	RepositoryName string
	Platform       string
	Category       string
	Tags           []string
	Homepage       string
	Maintainer     string
	License        string
	LastUpdated    string
	// Extra carries repository-specific fields the core treats as opaque.
	Extra map[string]interface{}
}

// IdentityKey returns (name, repository_name).
func (p RepositoryPackage) IdentityKey() [2]string {
	return [2]string{p.Name, p.RepositoryName}
}

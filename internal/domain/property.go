package domain

// Property is a resolved analytics property.
type Property struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id" yaml:"id"`
}

// Label returns "name (id)" or just the ID when no name is configured.
func (p Property) Label() string {
	if p.Name == "" || p.Name == p.ID {
		return p.ID
	}
	return p.Name + " (" + p.ID + ")"
}

package models

// Member is an identity-only reference shared across merge requests, commits and issues.
type Member struct {
	ID       int
	Username string
	Name     string
}

// NewMember creates a Member from a provider record
func NewMember(rec MemberRecord) Member {
	return Member{
		ID:       rec.ID,
		Username: rec.Username,
		Name:     rec.Name,
	}
}

// ToDocument returns the document form of the member.
func (m Member) ToDocument() Document {
	return Document{
		"id":       m.ID,
		"username": m.Username,
		"name":     m.Name,
	}
}

// Package identity exposes the signed-in user to the journal core.
package identity

// User is the authenticated account the journal is scoped to.
type User struct {
	ID    string
	Email string
}

// Provider reports the current user, or nil when nobody is signed in.
// CurrentUser must not block.
type Provider interface {
	CurrentUser() *User
}

// UserID returns the current user's id, or "" when p is nil or nobody is
// signed in.
func UserID(p Provider) string {
	if p == nil {
		return ""
	}
	if u := p.CurrentUser(); u != nil {
		return u.ID
	}
	return ""
}

// Static is a fixed Provider. A nil User means signed out.
type Static struct {
	User *User
}

func (s Static) CurrentUser() *User {
	return s.User
}

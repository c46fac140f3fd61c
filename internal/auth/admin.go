package auth

import "strings"

// AdminList is the set of email addresses allowed into /admin routes.
// Matching is case-insensitive; an empty list admits nobody.
type AdminList struct {
	emails map[string]struct{}
}

func NewAdminList(emails []string) *AdminList {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &AdminList{emails: set}
}

func (a *AdminList) IsAdmin(email string) bool {
	if email == "" {
		return false
	}
	_, ok := a.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

func (a *AdminList) Len() int { return len(a.emails) }

package domain

import "time"

// Profile is the per-owner metadata row.
type Profile struct {
	OwnerID        string
	Email          string
	DisplayName    string
	ChildName      string
	ChildBirthDate *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ChildAgeDays returns the child's age in whole days at now, or -1 when the
// birth date is unknown.
func (p *Profile) ChildAgeDays(now time.Time) int {
	if p.ChildBirthDate == nil {
		return -1
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	by, bm, bd := p.ChildBirthDate.Date()
	birth := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	if birth.After(today) {
		return -1
	}
	return int(today.Sub(birth).Hours() / 24)
}

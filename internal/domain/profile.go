package domain

import (
	"slices"
	"time"
)

// Gender values accepted on a profile.
const (
	GenderFemale         = "female"
	GenderMale           = "male"
	GenderNonBinary      = "non_binary"
	GenderOther          = "other"
	GenderPreferNotToSay = "prefer_not_to_say"
)

// MaxProfileGenres caps the preferred genre list.
const MaxProfileGenres = 8

// Username changes are limited to UsernameChangeLimit per UsernameChangeWindow.
const (
	UsernameChangeLimit  = 3
	UsernameChangeWindow = 15 * 24 * time.Hour
)

// Socials holds optional social handles.
type Socials struct {
	Website   string `json:"website,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Goodreads string `json:"goodreads,omitempty"`
}

// Any reports whether at least one handle is set.
func (s Socials) Any() bool {
	return s.Website != "" || s.Twitter != "" || s.Instagram != "" || s.Goodreads != ""
}

// UserProfile contains the public and private profile fields of a user.
// Stored separately from User to keep auth concerns separate.
type UserProfile struct {
	UserID            string     `json:"user_id"`
	Name              string     `json:"name"`
	Username          string     `json:"username,omitempty"`
	Email             string     `json:"email"`
	Bio               string     `json:"bio,omitempty"`
	AvatarURL         string     `json:"avatar_url,omitempty"`
	CoverURL          string     `json:"cover_url,omitempty"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	Gender            string     `json:"gender,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Socials           Socials    `json:"socials"`
	Genres            []string   `json:"genres"`
	ProfileCompletion int        `json:"profile_completion"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewUserProfile creates a default profile for a user.
func NewUserProfile(userID, name, email string) *UserProfile {
	now := time.Now()
	p := &UserProfile{
		UserID:    userID,
		Name:      name,
		Email:     email,
		Genres:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.ProfileCompletion = p.Completion(0)
	return p
}

// Completion returns the 0-100 completion score for the profile given the
// user's favorites count. Each of ten criteria is worth 10 points.
func (p *UserProfile) Completion(favorites int) int {
	criteria := []bool{
		p.Name != "",
		p.Username != "",
		p.Bio != "",
		p.AvatarURL != "",
		p.DateOfBirth != nil,
		p.Gender != "",
		p.Phone != "",
		p.Socials.Any(),
		len(p.Genres) > 0,
		favorites > 0,
	}
	score := 0
	for _, ok := range criteria {
		if ok {
			score += 10
		}
	}
	return score
}

// PublicView strips private contact fields.
func (p *UserProfile) PublicView() *UserProfile {
	pub := *p
	pub.Email = ""
	pub.Phone = ""
	pub.DateOfBirth = nil
	pub.Genres = slices.Clone(p.Genres)
	return &pub
}

// UsernameChangeRetryAt checks recent username changes against the rolling
// window. It returns the zero time when another change is allowed at now,
// otherwise the earliest time the next change becomes allowed.
func UsernameChangeRetryAt(changes []time.Time, now time.Time) time.Time {
	windowStart := now.Add(-UsernameChangeWindow)
	var recent []time.Time
	for _, c := range changes {
		if c.After(windowStart) {
			recent = append(recent, c)
		}
	}
	if len(recent) < UsernameChangeLimit {
		return time.Time{}
	}
	slices.SortFunc(recent, func(a, b time.Time) int { return a.Compare(b) })
	return recent[len(recent)-UsernameChangeLimit].Add(UsernameChangeWindow)
}

package models

import "github.com/sistempim/pimserver/internal/pkg/docstore"

// UserProfile is the canonical user record in the 'users' collection,
// keyed by the provider-issued uid. The follower/following sets live here
// and are only mutated through the relationship service.
type UserProfile struct {
	UID       string   `json:"uid"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	PhotoURL  string   `json:"photoUrl,omitempty"`
	Role      RoleType `json:"role"`
	Gender    string   `json:"gender,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	JobTitle  string   `json:"jobTitle,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	Following []string `json:"following"`
	Followers []string `json:"followers"`
}

// ProfileFromDocument maps a stored users document onto a UserProfile.
func ProfileFromDocument(doc docstore.Document) UserProfile {
	f := doc.Fields
	role := RoleType(fieldString(f, "role"))
	if role == "" {
		role = RoleStudent
	}
	return UserProfile{
		UID:       doc.Key,
		Email:     fieldString(f, "email"),
		Name:      fieldString(f, "nome"),
		PhotoURL:  fieldString(f, "foto"),
		Role:      role,
		Gender:    fieldString(f, "genero"),
		Bio:       fieldString(f, "bio"),
		JobTitle:  fieldString(f, "cargo"),
		Skills:    fieldStrings(f, "habilidades"),
		Following: fieldStrings(f, "seguindo"),
		Followers: fieldStrings(f, "seguidores"),
	}
}

// PlaceholderProfile is the degraded profile returned when the store
// cannot be reached: empty fields, never an error, so callers relying on
// profile data are not blocked by a store outage.
func PlaceholderProfile(uid string) UserProfile {
	return UserProfile{
		UID:       uid,
		Name:      "Usuário",
		Role:      RoleStudent,
		Skills:    []string{},
		Following: []string{},
		Followers: []string{},
	}
}

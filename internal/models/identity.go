package models

import "strings"

// Identity is the authenticated user as supplied by the external identity collaborator
type Identity struct {
	UID        string `json:"uid"`
	Email      string `json:"email"`
	Department string `json:"department"`
	FullName   string `json:"fullName"`
}

// Valid reports whether the identity carries the fields every write needs
func (i Identity) Valid() bool {
	return i.UID != "" && i.Email != ""
}

// DisplayName falls back to the email when no full name is known
func (i Identity) DisplayName() string {
	if i.FullName != "" {
		return i.FullName
	}
	return i.Email
}

// ExternalPrefix namespaces senders that arrive through the mail gateway.
// Authenticated identities never carry it, so an external sender can not
// match an internal uid or email.
const ExternalPrefix = "smtp:"

// ExternalIdentity builds the sender identity for an unauthenticated mail address
func ExternalIdentity(address, name string) Identity {
	if address == "" {
		return Identity{FullName: name}
	}
	if name == "" {
		name = address
	}
	return Identity{
		UID:      ExternalPrefix + address,
		Email:    ExternalPrefix + address,
		FullName: name,
	}
}

// External reports whether the identity came from the mail gateway
func (i Identity) External() bool {
	return strings.HasPrefix(i.UID, ExternalPrefix) || strings.HasPrefix(i.Email, ExternalPrefix)
}

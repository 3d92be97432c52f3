package services

import (
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/repository"
)

// DirectQuery selects sent messages addressed to the identity's email
func DirectQuery(identity models.Identity) repository.Query {
	return repository.Query{To: identity.Email, Status: models.StatusSent}
}

// DepartmentQuery selects sent messages broadcast to the identity's department.
// ok is false when the identity has no department.
func DepartmentQuery(identity models.Identity) (q repository.Query, ok bool) {
	if identity.Department == "" {
		return repository.Query{}, false
	}
	return repository.Query{Department: identity.Department, Status: models.StatusSent}, true
}

// SentQuery selects sent messages whose sender is any of the identity's ids.
// Older messages stored the email as senderId, so both are matched.
func SentQuery(identity models.Identity) repository.Query {
	ids := []string{identity.UID}
	if identity.Email != "" && identity.Email != identity.UID {
		ids = append(ids, identity.Email)
	}
	return repository.Query{
		SenderIDs:   ids,
		SenderEmail: identity.Email,
		Status:      models.StatusSent,
	}
}

// DraftQuery selects the identity's drafts
func DraftQuery(identity models.Identity) repository.Query {
	return repository.Query{SenderIDs: []string{identity.UID}, Status: models.StatusDraft}
}

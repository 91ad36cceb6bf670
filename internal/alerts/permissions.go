package alerts

import "card-alerts-go/internal/models"

// Permission predicates over (actor, alert). All four are total and
// side-effect free; the service translates a denial into the matching
// Forbidden error.

// CanRead allows superusers, the creator, and anyone on the email
// channel's recipient list.
func CanRead(actor models.Actor, a models.Alert) bool {
	if actor.IsSuperuser {
		return true
	}
	return actor.UserID == a.CreatorID || a.IsRecipient(actor.UserID)
}

// CanWrite allows superusers, and the creator only while they remain a
// current recipient. A creator who removed themselves from the
// distribution list loses write access.
func CanWrite(actor models.Actor, a models.Alert) bool {
	if actor.IsSuperuser {
		return true
	}
	return actor.UserID == a.CreatorID && a.IsRecipient(actor.UserID)
}

// CanUnsubscribe is denied for superusers unconditionally; they edit the
// alert directly instead. Anyone else may unsubscribe from an alert they
// can read.
func CanUnsubscribe(actor models.Actor, a models.Alert) bool {
	if actor.IsSuperuser {
		return false
	}
	return CanRead(actor, a)
}

// CanDelete allows the creator and superusers.
func CanDelete(actor models.Actor, a models.Alert) bool {
	return actor.IsSuperuser || actor.UserID == a.CreatorID
}

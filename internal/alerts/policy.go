package alerts

import "card-alerts-go/internal/models"

// ShouldDeleteOnUnsubscribe decides whether an unsubscribe must delete
// the whole alert instead of removing one recipient. True only when the
// unsubscriber is the creator, the email channel has exactly that one
// recipient, and no chat channel remains to deliver the alert anywhere.
// An alert that still has a chat channel is preserved with an empty
// recipient list.
//
// Callers verify via CanUnsubscribe that the user actually is a
// recipient before consulting this.
func ShouldDeleteOnUnsubscribe(a models.Alert, userID int) bool {
	if userID != a.CreatorID {
		return false
	}
	recipients := a.EmailRecipients()
	if len(recipients) != 1 || recipients[0].UserID != userID {
		return false
	}
	_, hasChat := a.Channel(models.ChannelChat)
	return !hasChat
}

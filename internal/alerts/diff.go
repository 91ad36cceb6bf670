package alerts

import (
	"sort"

	"card-alerts-go/internal/models"
)

// DiffRecipients computes the change in the email channel's recipient
// set between two snapshots of the same alert. Identity is the user id,
// never list position. An absent email channel reads as an empty set.
// Recipients present in both snapshots appear in neither result.
func DiffRecipients(oldAlert, newAlert models.Alert) (removed, added []models.Recipient) {
	oldSet := recipientSet(oldAlert)
	newSet := recipientSet(newAlert)

	for id, r := range oldSet {
		if _, ok := newSet[id]; !ok {
			removed = append(removed, r)
		}
	}
	for id, r := range newSet {
		if _, ok := oldSet[id]; !ok {
			added = append(added, r)
		}
	}

	sortRecipients(removed)
	sortRecipients(added)
	return removed, added
}

func recipientSet(a models.Alert) map[int]models.Recipient {
	set := make(map[int]models.Recipient)
	for _, r := range a.EmailRecipients() {
		set[r.UserID] = r
	}
	return set
}

// Stable order so each recipient is visited exactly once and callers see
// deterministic notification order.
func sortRecipients(rs []models.Recipient) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].UserID < rs[j].UserID })
}

package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"card-alerts-go/internal/models"
)

func recipientIDs(rs []models.Recipient) []int {
	ids := make([]int, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.UserID)
	}
	return ids
}

func TestDiffRecipients(t *testing.T) {
	oldAlert := alertWithRecipients(1, 1, 2)
	newAlert := alertWithRecipients(1, 2, 3)

	removed, added := DiffRecipients(oldAlert, newAlert)

	assert.Equal(t, []int{1}, recipientIDs(removed))
	assert.Equal(t, []int{3}, recipientIDs(added))
}

func TestDiffRecipients_Unchanged(t *testing.T) {
	a := alertWithRecipients(1, 1, 2, 3)

	removed, added := DiffRecipients(a, a)

	assert.Empty(t, removed)
	assert.Empty(t, added)
}

func TestDiffRecipients_AbsentChannelIsEmptySet(t *testing.T) {
	withRecipients := alertWithRecipients(1, 1, 2)
	noEmail := models.Alert{ID: 1, CreatorID: 1}

	removed, added := DiffRecipients(withRecipients, noEmail)
	assert.Equal(t, []int{1, 2}, recipientIDs(removed))
	assert.Empty(t, added)

	removed, added = DiffRecipients(noEmail, withRecipients)
	assert.Empty(t, removed)
	assert.Equal(t, []int{1, 2}, recipientIDs(added))
}

func TestDiffRecipients_DisjointSets(t *testing.T) {
	oldAlert := alertWithRecipients(1, 1, 2)
	newAlert := alertWithRecipients(1, 3, 4)

	removed, added := DiffRecipients(oldAlert, newAlert)

	assert.Equal(t, []int{1, 2}, recipientIDs(removed))
	assert.Equal(t, []int{3, 4}, recipientIDs(added))
}

func TestDiffRecipients_IdentityByUserID(t *testing.T) {
	// Same membership, different list order and changed email address:
	// no notifications.
	oldAlert := models.Alert{
		CreatorID: 1,
		Channels: []models.Channel{{
			Kind: models.ChannelEmail,
			Recipients: []models.Recipient{
				{UserID: 1, Email: "one@example.com"},
				{UserID: 2, Email: "two@example.com"},
			},
		}},
	}
	newAlert := models.Alert{
		CreatorID: 1,
		Channels: []models.Channel{{
			Kind: models.ChannelEmail,
			Recipients: []models.Recipient{
				{UserID: 2, Email: "two@example.com"},
				{UserID: 1, Email: "renamed@example.com"},
			},
		}},
	}

	removed, added := DiffRecipients(oldAlert, newAlert)

	assert.Empty(t, removed)
	assert.Empty(t, added)
}

package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"card-alerts-go/internal/models"
)

func TestShouldDeleteOnUnsubscribe_SoleCreatorRecipient(t *testing.T) {
	a := alertWithRecipients(1, 1)

	assert.True(t, ShouldDeleteOnUnsubscribe(a, 1))
	assert.False(t, ShouldDeleteOnUnsubscribe(a, 2), "only the creator triggers deletion")
}

func TestShouldDeleteOnUnsubscribe_ChatChannelPreservesAlert(t *testing.T) {
	a := alertWithRecipients(1, 1)
	a.Channels = append(a.Channels, models.Channel{
		Kind:        models.ChannelChat,
		Destination: "#ops",
	})

	assert.False(t, ShouldDeleteOnUnsubscribe(a, 1), "alert still delivers to chat")
}

func TestShouldDeleteOnUnsubscribe_OtherRecipientsRemain(t *testing.T) {
	a := alertWithRecipients(1, 1, 2)

	assert.False(t, ShouldDeleteOnUnsubscribe(a, 1), "removal merely narrows recipients")
}

func TestShouldDeleteOnUnsubscribe_SoleRecipientIsNotCreator(t *testing.T) {
	a := alertWithRecipients(1, 2)

	assert.False(t, ShouldDeleteOnUnsubscribe(a, 2))
	assert.False(t, ShouldDeleteOnUnsubscribe(a, 1))
}

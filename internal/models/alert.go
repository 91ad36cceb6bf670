package models

import "time"

type ChannelKind string

const (
	ChannelEmail ChannelKind = "email"
	ChannelChat  ChannelKind = "chat"
)

type Condition string

const (
	ConditionRows Condition = "rows"
	ConditionGoal Condition = "goal"
)

// Recipient is one entry on an email channel's distribution list.
type Recipient struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
}

// Channel is one delivery mechanism attached to an alert. Email channels
// carry a recipient list; chat channels carry a single destination
// (room or handle) and no recipients.
type Channel struct {
	Kind        ChannelKind `json:"kind"`
	Recipients  []Recipient `json:"recipients,omitempty"`
	Destination string      `json:"destination,omitempty"`
}

type Alert struct {
	ID            int       `json:"id"`
	CreatorID     int       `json:"creator_id"`
	CardID        int       `json:"card_id"`
	Condition     Condition `json:"condition"`
	FirstRunOnly  bool      `json:"first_run_only"`
	AboveGoalOnly *bool     `json:"above_goal_only,omitempty"`
	Channels      []Channel `json:"channels"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Channel returns the first channel of the given kind. Absence is a
// valid result, not an error.
func (a Alert) Channel(kind ChannelKind) (Channel, bool) {
	for _, ch := range a.Channels {
		if ch.Kind == kind {
			return ch, true
		}
	}
	return Channel{}, false
}

// EmailRecipients returns the email channel's recipient list, or nil
// when no email channel is configured.
func (a Alert) EmailRecipients() []Recipient {
	ch, ok := a.Channel(ChannelEmail)
	if !ok {
		return nil
	}
	return ch.Recipients
}

// IsRecipient reports whether the user appears on the email channel.
func (a Alert) IsRecipient(userID int) bool {
	for _, r := range a.EmailRecipients() {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

package models

import "time"

// PushSubscription is one browser registered for push delivery of alert
// notices. P256dh and Auth carry the Web Push subscription keys, flattened
// from the browser's `keys` object by the subscribe handler.
type PushSubscription struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"keys_p256dh"`
	Auth      string    `json:"keys_auth"`
	CreatedAt time.Time `json:"created_at"`
}

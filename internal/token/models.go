package token

import "time"

// State is the lifecycle position of a token at a given instant.
type State string

const (
	StateActive   State = "active"
	StateConsumed State = "consumed"
	StateExpired  State = "expired"
)

// Token binds one client identifier to the right to request uploads for a bounded period.
type Token struct {
	Value      string     `json:"token" bson:"_id"`
	ClientID   string     `json:"client_id" bson:"client_id"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at" bson:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty" bson:"consumed_at,omitempty"`
}

// Expired reports whether now is past the expiry instant.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// State reports the token's state at now. Consumption takes precedence over expiry.
func (t Token) State(now time.Time) State {
	switch {
	case t.ConsumedAt != nil:
		return StateConsumed
	case t.Expired(now):
		return StateExpired
	default:
		return StateActive
	}
}

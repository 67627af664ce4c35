package entity

import "time"

// Business is the read model served by the business directory, used only for
// resolving the vendor side of a chat and denormalized display fields.
type Business struct {
	ID        string    `json:"id" firestore:"id"`
	Name      string    `json:"name" firestore:"name"`
	OwnerID   string    `json:"owner_id" firestore:"ownerId"`
	AvatarURL string    `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`
	Status    string    `json:"status" firestore:"status"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

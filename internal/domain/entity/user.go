package entity

import "time"

// User is the read model served by the user directory. The messaging core
// never creates or mutates users; identity comes from the auth collaborator.
type User struct {
	ID        string    `json:"id" firestore:"id"`
	Email     string    `json:"email" firestore:"email"`
	Username  string    `json:"username" firestore:"username"`
	AvatarURL string    `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`
	Role      string    `json:"role" firestore:"role"` // "customer", "vendor", "admin"
	Status    string    `json:"status" firestore:"status"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

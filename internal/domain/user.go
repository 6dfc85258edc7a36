package domain

// Profile is the identity collaborator's view of a user. Immutable from the room core's side.
type Profile struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarRef string `json:"avatar_ref,omitempty"`
}

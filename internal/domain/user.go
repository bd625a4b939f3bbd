package domain

// User is the slice of a gallery account the notification core needs for audience resolution.
// Accounts themselves are owned by the CRUD layer.
type User struct {
	UserID      string `json:"id" dynamodbav:"user_id" db:"user_id"`
	DisplayName string `json:"display_name" dynamodbav:"display_name" db:"display_name"`
	Role        string `json:"role" dynamodbav:"role" db:"role"`
}

// Artwork is the ownership record used to route approval, rejection and comment events.
type Artwork struct {
	ArtworkID string `json:"id" dynamodbav:"artwork_id" db:"artwork_id"`
	OwnerID   string `json:"owner_id" dynamodbav:"owner_id" db:"owner_id"`
	Title     string `json:"title" dynamodbav:"title" db:"title"`
}

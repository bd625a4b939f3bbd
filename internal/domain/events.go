package domain

// DomainEvent is a gallery action that produces notifications.
type DomainEvent interface {
	Kind() NotificationType
}

// ArtworkUploaded is raised when an artist submits an artwork for review.
type ArtworkUploaded struct {
	ArtworkID    string `json:"artwork_id" validate:"required"`
	Title        string `json:"title" validate:"required"`
	ArtistID     string `json:"artist_id" validate:"required"`
	ArtistName   string `json:"artist_name" validate:"required"`
	ThumbnailKey string `json:"thumbnail_key"` // object key; signed into a URL for the push payload
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url"`
}

// ArtworkApproved is raised when a curator accepts an artwork.
type ArtworkApproved struct {
	ArtworkID   string `json:"artwork_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	CuratorID   string `json:"curator_id" validate:"required"`
	CuratorName string `json:"curator_name" validate:"required"`
}

// ArtworkRejected is raised when a curator declines an artwork.
type ArtworkRejected struct {
	ArtworkID string  `json:"artwork_id" validate:"required"`
	Title     string  `json:"title" validate:"required"`
	CuratorID string  `json:"curator_id" validate:"required"`
	Reason    *string `json:"reason" validate:"omitempty,max=1000"`
}

// ExhibitionCreated is raised when a curator opens a new exhibition.
type ExhibitionCreated struct {
	ExhibitionID string `json:"exhibition_id" validate:"required"`
	Title        string `json:"title" validate:"required"`
	CuratorID    string `json:"curator_id" validate:"required"`
	CuratorName  string `json:"curator_name" validate:"required"`
}

// CommentAdded is raised when someone comments on an artwork, optionally inside an exhibition.
type CommentAdded struct {
	CommentID    string `json:"comment_id" validate:"required"`
	ArtworkID    string `json:"artwork_id" validate:"required"`
	ExhibitionID string `json:"exhibition_id"`
	AuthorID     string `json:"author_id" validate:"required"`
	AuthorName   string `json:"author_name" validate:"required"`
	Body         string `json:"body" validate:"required,max=4000"`
}

func (ArtworkUploaded) Kind() NotificationType   { return TypeUpload }
func (ArtworkApproved) Kind() NotificationType   { return TypeApproved }
func (ArtworkRejected) Kind() NotificationType   { return TypeRejected }
func (ExhibitionCreated) Kind() NotificationType { return TypeExhibitionCreated }
func (CommentAdded) Kind() NotificationType      { return TypeCommentAdded }

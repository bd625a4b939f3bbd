package dynamo

// DynamoDB attribute names used in keys, conditions and update expressions.
// They must match the dynamodbav tags on the domain types.
const (
	attrNotificationID = "notification_id"
	attrRecipientID    = "recipient_id"
	attrCreatedAt      = "created_at"
	attrIsRead         = "is_read"

	attrUserID    = "user_id"
	attrRole      = "role"
	attrArtworkID = "artwork_id"
	attrOwnerID   = "owner_id"
)

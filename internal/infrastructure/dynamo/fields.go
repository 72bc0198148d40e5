package dynamo

// Attribute names of the credentials table.
const (
	fieldSessionID = "session_id"
	fieldBlob      = "blob"
	fieldUpdatedAt = "updated_at"
)

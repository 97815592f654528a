package logging

// Recurring structured-log field names, kept as constants so call sites
// never typo a key that a dashboard or log query depends on.
const (
	FieldPublicationID = "publication_id"
	FieldAvatarID      = "avatar_id"
	FieldBlueprintID   = "blueprint_id"
	FieldPlatform      = "platform"
	FieldFileID        = "file_id"
	FieldVersionID     = "version_id"
	FieldEndpoint      = "endpoint"
	FieldStatus        = "status"
	FieldAttempt       = "attempt"
)

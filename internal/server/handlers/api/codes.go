package api

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // admin password missing or wrong

	// Auth errors
	CodeAuthInvalidCredentials = "E_AUTH_INVALID_CREDENTIALS" // unknown user or wrong key
	CodeAuthRegisterFailed     = "E_AUTH_REGISTER_FAILED"     // a failure while issuing a new key

	// Ingestion errors
	CodeDedupConflict    = "E_DEDUP_CONFLICT"    // the revision id is already recorded
	CodeHashMismatch     = "E_HASH_MISMATCH"     // the body does not hash to the filehash header
	CodeExtractionFailed = "E_EXTRACTION_FAILED" // archive, revision record or schema could not be processed
	CodeStorageFailed    = "E_STORAGE_FAILED"    // archive or record could not be stored

	// Collection errors
	CodeCollectionEmpty = "E_COLLECTION_EMPTY" // the collection has no uploads yet
)

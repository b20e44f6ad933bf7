// Package wire holds the names both sides of the upload protocol agree on.
package wire

// Request headers
const (
	HeaderUsername   = "username"
	HeaderPassword   = "password"
	HeaderCollection = "collection"
	HeaderFilename   = "filename"
	HeaderFileHash   = "filehash"
	HeaderID         = "id"
	HeaderDeviceID   = "X-Simlog-Device-Id"
)

// Response headers
const (
	HeaderUploadName = "upload_name"
	HeaderKey        = "key"
	HeaderParentID   = "parent_id"
	HeaderErrorCode  = "X-Error-Code"
)

// NotFound is the upload_name of a revision id the server has not recorded.
const NotFound = "DNE"

const (
	PathCheck    = "/check"
	PathUpload   = "/upload"
	PathUpdate   = "/update"
	PathRegister = "/register"
	PathCleanup  = "/cleanup"
	PathHealth   = "/healthz"
)

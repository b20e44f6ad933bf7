package ingest

// CheckRequest asks whether a revision id is recorded. The id travels in filehash.
type CheckRequest struct {
	ID string `header:"filehash" binding:"required"`
}

// UploadRequest describes the archive in the request body.
type UploadRequest struct {
	Collection string `header:"collection" binding:"required"`
	Filename   string `header:"filename" binding:"required"`
	FileHash   string `header:"filehash" binding:"required"`
	ID         string `header:"id"`
}

// UpdateRequest asks for the latest archive of a collection.
type UpdateRequest struct {
	Collection string `header:"collection" binding:"required"`
}

package simsdk

import "fmt"

type UploadParams struct {
	Collection string
	// ID is the revision id staged in the archive; sent when known.
	ID       string
	Filename string
	// FileHash is the SHA-256 hex digest of Data.
	FileHash string
	Data     []byte
}

func (p *UploadParams) Validate() error {
	switch {
	case p.Collection == "":
		return fmt.Errorf("upload: collection required")
	case p.Filename == "":
		return fmt.Errorf("upload: filename required")
	case p.FileHash == "":
		return fmt.Errorf("upload: filehash required")
	}
	return nil
}

type UploadResponse struct {
	UploadName string
	Message    string
}

type UpdateResponse struct {
	ID         string
	ParentID   string
	UploadName string
	Data       []byte
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Package simsdk is the HTTP client of the simlog upload protocol.
package simsdk

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/openmined/simlog/internal/utils"
	"github.com/openmined/simlog/internal/version"
	"github.com/openmined/simlog/internal/wire"
)

const (
	HeaderUserAgent = "User-Agent"
	// archives can be large, a single request may take a while
	requestTimeout = 30 * time.Minute
)

var UserAgent = fmt.Sprintf("%s (%s; %s/%s)", version.UserAgent(), version.Revision, runtime.GOOS, runtime.GOARCH)

// Client talks to one simlog server.
type Client struct {
	client   *req.Client
	baseURL  string
	username string
}

// New creates a client for the server at baseURL
func New(baseURL string) (*Client, error) {
	if !utils.IsValidURL(baseURL) {
		return nil, fmt.Errorf("%w: %q", ErrNoServerURL, baseURL)
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetUserAgent(UserAgent).
		SetCommonHeader(wire.HeaderDeviceID, utils.HWID).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &Client{
		client:  client,
		baseURL: baseURL,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login sets the credentials sent with every authenticated call
func (c *Client) Login(username, key string) {
	c.username = username
	c.client.SetCommonHeader(wire.HeaderUsername, username)
	c.client.SetCommonHeader(wire.HeaderPassword, key)
}

func (c *Client) Username() string {
	return c.username
}

// Health fetches the server status.
func (c *Client) Health(ctx context.Context) (apiResp *HealthResponse, err error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&apiResp).
		Get(wire.PathHealth)

	if err := handleAPIError(resp, err, "health"); err != nil {
		return nil, err
	}
	return apiResp, nil
}

// Check asks whether a revision id is recorded. It returns the upload name when it is.
func (c *Client) Check(ctx context.Context, id string) (name string, found bool, err error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(wire.HeaderFileHash, id).
		Post(wire.PathCheck)

	if err := handleAPIError(resp, err, "check"); err != nil {
		return "", false, err
	}

	name = resp.Header.Get(wire.HeaderUploadName)
	switch name {
	case "":
		return "", false, &ProtocolError{Op: "check", Missing: wire.HeaderUploadName}
	case wire.NotFound:
		return "", false, nil
	}
	return name, true, nil
}

// Upload sends an archive. The server answers with the name it stored the archive as.
func (c *Client) Upload(ctx context.Context, params *UploadParams) (*UploadResponse, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	r := c.client.R().
		SetContext(ctx).
		SetHeader(wire.HeaderCollection, params.Collection).
		SetHeader(wire.HeaderFilename, params.Filename).
		SetHeader(wire.HeaderFileHash, params.FileHash).
		SetContentType("application/gzip").
		SetBody(params.Data)
	if params.ID != "" {
		r.SetHeader(wire.HeaderID, params.ID)
	}

	resp, err := r.Post(wire.PathUpload)
	if err := handleAPIError(resp, err, "upload"); err != nil {
		return nil, err
	}

	name := resp.Header.Get(wire.HeaderUploadName)
	if name == "" {
		return nil, &ProtocolError{Op: "upload", Missing: wire.HeaderUploadName}
	}
	return &UploadResponse{UploadName: name, Message: strings.TrimSpace(resp.String())}, nil
}

// Update downloads the latest archive of a collection.
func (c *Client) Update(ctx context.Context, collection string) (*UpdateResponse, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(wire.HeaderCollection, collection).
		Post(wire.PathUpdate)

	if err := handleAPIError(resp, err, "update"); err != nil {
		return nil, err
	}

	id := resp.Header.Get(wire.HeaderID)
	if id == "" {
		return nil, &ProtocolError{Op: "update", Missing: wire.HeaderID}
	}
	return &UpdateResponse{
		ID:         id,
		ParentID:   resp.Header.Get(wire.HeaderParentID),
		UploadName: resp.Header.Get(wire.HeaderUploadName),
		Data:       resp.Bytes(),
	}, nil
}

// Register creates or rotates a user and returns the new key.
func (c *Client) Register(ctx context.Context, adminPassword, username string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(wire.HeaderUsername, username).
		SetHeader(wire.HeaderPassword, adminPassword).
		Post(wire.PathRegister)

	if err := handleAPIError(resp, err, "register"); err != nil {
		return "", err
	}

	key := resp.Header.Get(wire.HeaderKey)
	if key == "" {
		return "", &ProtocolError{Op: "register", Missing: wire.HeaderKey}
	}
	return key, nil
}

// Cleanup removes unreferenced archives on the server and returns their keys.
func (c *Client) Cleanup(ctx context.Context, adminPassword string) ([]string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(wire.HeaderPassword, adminPassword).
		Post(wire.PathCleanup)

	if err := handleAPIError(resp, err, "cleanup"); err != nil {
		return nil, err
	}

	var removed []string
	for _, line := range strings.Split(resp.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			removed = append(removed, line)
		}
	}
	return removed, nil
}

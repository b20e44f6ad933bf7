package simsdk

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmined/simlog/internal/wire"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := New(ts.URL + "/")
	require.NoError(t, err)
	c.Login("alice", "secret-key")
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("localhost:8080")
	assert.ErrorIs(t, err, ErrNoServerURL)

	c, err := New("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.BaseURL())
}

func TestCheck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wire.PathCheck, r.URL.Path)
		assert.Equal(t, "alice", r.Header.Get(wire.HeaderUsername))
		assert.Equal(t, "secret-key", r.Header.Get(wire.HeaderPassword))
		assert.NotEmpty(t, r.Header.Get(wire.HeaderDeviceID))
		assert.Contains(t, r.Header.Get(HeaderUserAgent), "simlog/")

		switch r.Header.Get(wire.HeaderFileHash) {
		case "melt:1111111111111111":
			w.Header().Set(wire.HeaderUploadName, "melt.tar.gz")
		case "melt:2222222222222222":
			w.Header().Set(wire.HeaderUploadName, wire.NotFound)
		}
	})
	ctx := context.Background()

	name, found, err := c.Check(ctx, "melt:1111111111111111")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "melt.tar.gz", name)

	_, found, err = c.Check(ctx, "melt:2222222222222222")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = c.Check(ctx, "melt:3333333333333333")
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.Header.Get(wire.HeaderID) {
		case "melt:1111111111111111":
			assert.Equal(t, "melt", r.Header.Get(wire.HeaderCollection))
			assert.Equal(t, "melt.tar.gz", r.Header.Get(wire.HeaderFilename))
			assert.Equal(t, "abc", r.Header.Get(wire.HeaderFileHash))
			assert.Equal(t, "archive-bytes", string(body))
			w.Header().Set(wire.HeaderUploadName, "melt.tar.gz")
			io.WriteString(w, "Data received")
		default:
			w.Header().Set(wire.HeaderErrorCode, CodeDedupConflict)
			w.WriteHeader(http.StatusConflict)
			io.WriteString(w, "store: revision already recorded")
		}
	})
	ctx := context.Background()

	params := &UploadParams{
		Collection: "melt",
		ID:         "melt:1111111111111111",
		Filename:   "melt.tar.gz",
		FileHash:   "abc",
		Data:       []byte("archive-bytes"),
	}
	resp, err := c.Upload(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, "melt.tar.gz", resp.UploadName)
	assert.Equal(t, "Data received", resp.Message)

	params.ID = "melt:2222222222222222"
	_, err = c.Upload(ctx, params)
	assert.ErrorIs(t, err, ErrDedupConflict)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "store: revision already recorded", apiErr.Message)

	_, err = c.Upload(ctx, &UploadParams{Collection: "melt"})
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(wire.HeaderCollection) != "melt" {
			w.Header().Set(wire.HeaderErrorCode, CodeCollectionEmpty)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set(wire.HeaderID, "melt:1111111111111111")
		w.Header().Set(wire.HeaderParentID, "*")
		w.Header().Set(wire.HeaderUploadName, "melt.tar.gz")
		w.Write([]byte("gz"))
	})
	ctx := context.Background()

	resp, err := c.Update(ctx, "melt")
	require.NoError(t, err)
	assert.Equal(t, "melt:1111111111111111", resp.ID)
	assert.Equal(t, "*", resp.ParentID)
	assert.Equal(t, []byte("gz"), resp.Data)

	_, err = c.Update(ctx, "other")
	assert.ErrorIs(t, err, ErrCollectionEmpty)
}

func TestRegisterAndCleanup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(wire.HeaderPassword) != "admin" {
			w.Header().Set(wire.HeaderErrorCode, CodeAccessDenied)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case wire.PathRegister:
			assert.Equal(t, "bob", r.Header.Get(wire.HeaderUsername))
			w.Header().Set(wire.HeaderKey, "new-key")
		case wire.PathCleanup:
			io.WriteString(w, "melt/a_melt.tar.gz\nmelt/b_melt.tar.gz\n")
		}
	})
	ctx := context.Background()

	key, err := c.Register(ctx, "admin", "bob")
	require.NoError(t, err)
	assert.Equal(t, "new-key", key)

	_, err = c.Register(ctx, "wrong", "bob")
	assert.ErrorIs(t, err, ErrAccessDenied)

	removed, err := c.Cleanup(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"melt/a_melt.tar.gz", "melt/b_melt.tar.gz"}, removed)
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"ok","version":"0.1.0"}`)
	})

	resp, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "0.1.0", resp.Version)
}

func TestAPIErrorWithoutCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, _, err := c.Check(context.Background(), "melt:1111111111111111")
	assert.ErrorIs(t, err, ErrRateLimited)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusTooManyRequests), apiErr.Message)
}

func TestFailedRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set(wire.HeaderErrorCode, CodeInternalError)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, _, err := c.Check(context.Background(), "melt:1111111111111111")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())

	_, err = c.Health(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

package runner

import (
	"context"
	"fmt"

	"github.com/openmined/simlog/internal/archive"
	"github.com/openmined/simlog/internal/revision"
)

// update unpacks the latest upload of collection over dir. Local changes that are not
// uploaded yet would be overwritten, so they stop the update.
func (r *Runner) update(ctx context.Context, store *revision.Store, dir, collection string, localChanges bool) (*Result, error) {
	if localChanges {
		return nil, ErrLocalChanges
	}

	r.status(cyan, "getting latest version of %s", collection)
	resp, err := r.api.Update(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", collection, err)
	}

	if err := archive.Extract(resp.Data, dir); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", resp.UploadName, err)
	}

	rec, err := store.Load()
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.ID != resp.ID {
		r.status(yellow, "unpacked archive carries no matching revision record")
	}

	r.status(green, "updated to %s (%s)", resp.ID, resp.UploadName)
	return &Result{
		Dir:        dir,
		ID:         resp.ID,
		ParentID:   resp.ParentID,
		UploadName: resp.UploadName,
	}, nil
}

package feed

import (
	"context"
	"fmt"
)

// BatchStatusResolver fetches the viewer's like status for a whole page in
// one request.
type BatchStatusResolver struct {
	source LikeSource
}

// NewBatchStatusResolver creates a resolver over source
func NewBatchStatusResolver(source LikeSource) *BatchStatusResolver {
	return &BatchStatusResolver{source: source}
}

// Resolve returns an entry for every id in ids. Anonymous viewers and empty
// sets cost no request and resolve to false. Ids the source omits are false.
// On failure the all-false map is returned with the error, so the caller can
// render the page and warn.
func (r *BatchStatusResolver) Resolve(ctx context.Context, ids []string, v Viewer) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		out[id] = false
		unique = append(unique, id)
	}

	if !v.IsAuthenticated || len(unique) == 0 {
		return out, nil
	}

	got, err := r.source.LikeStatusBatch(ctx, unique)
	if err != nil {
		return out, fmt.Errorf("resolve like status: %w", err)
	}

	for _, id := range unique {
		out[id] = got[id]
	}
	return out, nil
}

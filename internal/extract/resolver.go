package extract

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ytget/coursegrab/internal/api"
	"github.com/ytget/coursegrab/internal/crypto"
	"github.com/ytget/coursegrab/internal/logger"
	"github.com/ytget/coursegrab/internal/model"
)

// DefaultResolveWorkers bounds the per-topic resolution pool.
const DefaultResolveWorkers = 8

// Meta-source request constants. The device fields are required by the
// endpoint but not validated server-side.
const (
	metaDeviceID      = "server_does_not_validate_it"
	metaDeviceName    = "server_does_not_validate_it"
	metaDownloadClick = "0"
	metaTypeVideo     = "video"
	metaNameSuffix    = "_0_0"
)

// expiryMarker begins the signed-URL expiry suffix stripped from CDN links.
const expiryMarker = "?Expires="

// embedURLPrefix synthesizes a playable URL from a bare embed identifier.
const embedURLPrefix = "https://www.youtube.com/embed/"

// Resolver turns asset leaves into playable URLs via the meta-source
// endpoint. Sibling leaves resolve concurrently; one leaf failing never
// disturbs the others.
type Resolver struct {
	client  *api.Client
	workers int
	log     *logger.Logger
}

// NewResolver creates a resolver with the default worker bound.
func NewResolver(client *api.Client, log *logger.Logger) *Resolver {
	return &Resolver{client: client, workers: DefaultResolveWorkers, log: log}
}

// SetWorkers overrides the worker bound.
func (r *Resolver) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	r.workers = n
}

// ResolveBatch resolves a topic's sibling asset nodes on the worker pool.
// emit runs under the batch lock, so callers get single-writer semantics for
// manifest and job appends. Completion order is whichever leaf finishes
// first. Returns resolved and gap counts.
func (r *Resolver) ResolveBatch(ctx context.Context, courseID string, nodes []*model.TreeNode, emit func(model.AssetRecord)) (resolved, gaps int) {
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for _, node := range nodes {
		g.Go(func() error {
			rec, ok := r.resolveNode(ctx, courseID, node)

			mu.Lock()
			defer mu.Unlock()
			if ok {
				resolved++
				emit(rec)
			} else {
				gaps++
				r.log.Debug("asset yielded no url", "id", node.ID, "title", node.Title)
			}
			// Failures are isolated per node; never fail the group.
			return nil
		})
	}

	_ = g.Wait()
	return resolved, gaps
}

// resolveNode asks the meta-source endpoint for one leaf and picks the best
// available URL.
func (r *Resolver) resolveNode(ctx context.Context, courseID string, node *model.TreeNode) (model.AssetRecord, bool) {
	payload := map[string]any{
		"course_id":      courseID,
		"device_id":      metaDeviceID,
		"device_name":    metaDeviceName,
		"download_click": metaDownloadClick,
		"name":           node.ID + metaNameSuffix,
		"tile_id":        node.TileID(),
		"type":           metaTypeVideo,
	}

	reply := r.client.Post(ctx, api.PathMetaSource, payload, crypto.KeySession)
	data, ok := reply["data"].(map[string]any)
	if !ok {
		return model.AssetRecord{}, false
	}

	if list, ok := data["bitrate_urls"].([]any); ok && len(list) > 0 {
		if url := selectBitrateURL(list); url != "" {
			return model.NewAssetRecord(node.Title, stripExpiry(url)), true
		}
		return model.AssetRecord{}, false
	}

	link, _ := data["link"].(string)
	if link == "" {
		return model.AssetRecord{}, false
	}

	switch {
	case strings.Contains(link, ".m3u8") || strings.Contains(link, ".pdf"):
		return model.NewAssetRecord(node.Title, stripExpiry(link)), true
	case strings.HasPrefix(link, "http"):
		return model.NewAssetRecord(node.Title, link), true
	default:
		// Bare embed identifier.
		return model.NewAssetRecord(node.Title, embedURLPrefix+link), true
	}
}

// selectBitrateURL picks the highest-ranked available variant: index 3 is
// preferred, falling back down through whichever entries exist.
func selectBitrateURL(list []any) string {
	for i := 3; i >= 0; i-- {
		if i >= len(list) {
			continue
		}
		entry, ok := list[i].(map[string]any)
		if !ok {
			continue
		}
		if url, _ := entry["url"].(string); url != "" {
			return url
		}
	}
	return ""
}

// stripExpiry drops the signed expiry suffix from a CDN URL.
func stripExpiry(url string) string {
	if idx := strings.Index(url, expiryMarker); idx >= 0 {
		return url[:idx]
	}
	return url
}

package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"

	"github.com/ytget/coursegrab/internal/api"
	"github.com/ytget/coursegrab/internal/crypto"
	"github.com/ytget/coursegrab/internal/logger"
	"github.com/ytget/coursegrab/internal/model"
)

// Navigation form field names.
const (
	fieldTileInput     = "tile_input"
	fieldLayerTwoInput = "layer_two_input_data"
	fieldCSRFName      = "csrf_name"
)

// revert_api flags the origin client sends per layer. Opaque to us; the
// server expects them verbatim.
const (
	revertCourse  = "1#0#0#1"
	revertSubject = "1#1#0#1"
	revertDeep    = "1#0#0#1"
)

// Navigation is never paginated past the first page; batches larger than one
// page are a known limitation of the origin protocol.
const firstPage = 1

// Traverser walks the content hierarchy for one batch and feeds resolved
// assets into a job and its manifest.
type Traverser struct {
	client   *api.Client
	resolver *Resolver
	log      *logger.Logger
}

// NewTraverser creates a traverser.
func NewTraverser(client *api.Client, resolver *Resolver, log *logger.Logger) *Traverser {
	return &Traverser{client: client, resolver: resolver, log: log}
}

// Run extracts the whole batch: courses, their subjects, topics, and asset
// leaves. A node that returns no usable data is treated as having no
// children; partial trees are expected. Only context cancellation aborts the
// walk.
func (t *Traverser) Run(ctx context.Context, batchID string, j *model.Job, m *Manifest) error {
	courses := t.fetchCourses(ctx, batchID)
	if len(courses) == 0 {
		t.log.Warn("batch has no courses", "batch", batchID)
	}

	for _, course := range courses {
		if err := ctx.Err(); err != nil {
			return err
		}

		title := model.PayloadString(course, "title")
		id := model.PayloadString(course, "id")
		info := model.PayloadString(course, "segment_information")
		if id == "" {
			continue
		}

		if err := m.StartCourse(title, id, info); err != nil {
			t.log.Warn("manifest write failed", "course", id, "error", err)
		}
		t.walkCourse(ctx, id, j, m)
	}
	return ctx.Err()
}

// walkCourse descends subject → topic → assets for one course.
func (t *Traverser) walkCourse(ctx context.Context, courseID string, j *model.Job, m *Manifest) {
	for _, subject := range t.fetchSubjects(ctx, courseID) {
		subjectID := model.PayloadString(subject, "id")
		if subjectID == "" {
			continue
		}

		for _, topic := range t.fetchLayerTwo(ctx, courseID, subjectID, subjectID, model.LayerTopic) {
			topicID := model.PayloadString(topic, "id")
			if topicID == "" {
				continue
			}

			nodes := t.assetNodes(t.fetchLayerTwo(ctx, courseID, subjectID, topicID, model.LayerAsset), topicID)
			if len(nodes) == 0 {
				continue
			}

			resolved, gaps := t.resolver.ResolveBatch(ctx, courseID, nodes, func(rec model.AssetRecord) {
				j.Append(rec)
				if err := m.AddEntry(rec.Title, rec.URL); err != nil {
					t.log.Warn("manifest write failed", "title", rec.Title, "error", err)
				}
			})
			for i := 0; i < gaps; i++ {
				j.AddGap()
			}
			t.log.Info("topic resolved", "course", courseID, "topic", topicID,
				"resolved", resolved, "gaps", gaps)
		}
	}
}

// fetchCourses requests the layer-0 course list for the batch. The course
// listing returns its data as a bare array.
func (t *Traverser) fetchCourses(ctx context.Context, batchID string) []map[string]any {
	payload := map[string]any{
		"course_id":  batchID,
		"layer":      int(model.LayerCourse),
		"page":       firstPage,
		"parent_id":  batchID,
		"revert_api": revertCourse,
		"tile_id":    0,
		"type":       "course",
	}

	reply := t.postTiles(ctx, payload)
	if reply == nil {
		return nil
	}
	return itemList(reply["data"])
}

// fetchSubjects requests the layer-1 subject list of a course; subjects
// arrive under data.list.
func (t *Traverser) fetchSubjects(ctx context.Context, courseID string) []map[string]any {
	payload := map[string]any{
		"course_id":  courseID,
		"layer":      int(model.LayerSubject),
		"page":       firstPage,
		"parent_id":  courseID,
		"revert_api": revertSubject,
		"tile_id":    "0",
		"type":       "content",
	}

	reply := t.postTiles(ctx, payload)
	if reply == nil {
		return nil
	}
	data, _ := reply["data"].(map[string]any)
	if data == nil {
		return nil
	}
	return itemList(data["list"])
}

// fetchLayerTwo requests topic (layer 2) or asset (layer 3) listings. This
// endpoint takes its payload plain-base64 encoded rather than stream
// encrypted; the inconsistency is the origin protocol's, preserved here.
func (t *Traverser) fetchLayerTwo(ctx context.Context, courseID, subjectID, topicID string, layer model.Layer) []map[string]any {
	payload := map[string]any{
		"course_id":  courseID,
		"parent_id":  courseID,
		"layer":      int(layer),
		"page":       firstPage,
		"revert_api": revertDeep,
		"subject_id": subjectID,
		"tile_id":    0,
		"topic_id":   topicID,
		"type":       "content",
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}

	form := url.Values{}
	form.Set(fieldLayerTwoInput, base64.StdEncoding.EncodeToString(raw))
	form.Set(fieldCSRFName, t.csrfToken())

	reply := t.client.PostWebForm(ctx, api.PathLayerTwoData, form)
	obj := navigationData(reply)
	if obj == nil {
		return nil
	}
	data, _ := obj["data"].(map[string]any)
	if data == nil {
		return nil
	}
	return itemList(data["list"])
}

// postTiles sends a stream-encrypted navigation payload to the tiles
// endpoint and decodes the enveloped response.
func (t *Traverser) postTiles(ctx context.Context, payload map[string]any) map[string]any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}

	form := url.Values{}
	form.Set(fieldTileInput, crypto.EncryptStream(string(raw)))
	form.Set(fieldCSRFName, t.csrfToken())

	return navigationData(t.client.PostWebForm(ctx, api.PathTilesData, form))
}

// assetNodes converts raw layer-3 items into tree nodes ready for
// resolution.
func (t *Traverser) assetNodes(items []map[string]any, topicID string) []*model.TreeNode {
	nodes := make([]*model.TreeNode, 0, len(items))
	for _, item := range items {
		id := model.PayloadString(item, "id")
		if id == "" {
			continue
		}

		payload, _ := item["payload"].(map[string]any)
		nodes = append(nodes, &model.TreeNode{
			ID:       id,
			Title:    model.PayloadString(item, "title"),
			ParentID: topicID,
			Layer:    model.LayerAsset,
			Payload:  payload,
		})
	}
	return nodes
}

// csrfToken returns the session's csrf token, or "" before login.
func (t *Traverser) csrfToken() string {
	if s := t.client.Session(); s != nil {
		return s.CSRFToken
	}
	return ""
}

// navigationData unwraps the stream-enveloped "response" field of a
// navigation reply. Nil when the reply is missing or undecodable.
func navigationData(reply map[string]any) map[string]any {
	if reply == nil {
		return nil
	}
	wire, _ := reply["response"].(string)
	if wire == "" {
		return nil
	}
	return crypto.DecodeStreamJSON(wire)
}

// itemList coerces a decoded JSON array into a slice of objects.
func itemList(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if obj, ok := entry.(map[string]any); ok {
			items = append(items, obj)
		}
	}
	return items
}

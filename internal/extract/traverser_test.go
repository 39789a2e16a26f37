package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ytget/coursegrab/internal/api"
	"github.com/ytget/coursegrab/internal/crypto"
	"github.com/ytget/coursegrab/internal/logger"
	"github.com/ytget/coursegrab/internal/model"
)

// hierarchyStub fakes the whole vendor surface for a 1-course, 1-subject,
// 1-topic, 3-asset batch where asset a2's metadata comes back empty.
func hierarchyStub(t *testing.T) http.HandlerFunc {
	t.Helper()
	codec := sessionCodec(t)

	navReply := func(t *testing.T, w http.ResponseWriter, body any) {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": crypto.EncryptStream(string(raw)),
		})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case api.PathTilesData:
			require.NoError(t, r.ParseForm())
			require.Equal(t, "csrf-abc", r.PostFormValue("csrf_name"))

			var payload map[string]any
			decrypted := crypto.DecryptStream(r.PostFormValue("tile_input"))
			require.NoError(t, json.Unmarshal([]byte(decrypted), &payload))

			switch int(payload["layer"].(float64)) {
			case 0:
				navReply(t, w, map[string]any{"data": []any{
					map[string]any{"id": "c1", "title": "Course One", "segment_information": "2026 batch"},
				}})
			case 1:
				navReply(t, w, map[string]any{"data": map[string]any{"list": []any{
					map[string]any{"id": "s1", "title": "Subject"},
				}}})
			default:
				t.Errorf("unexpected tiles_data layer %v", payload["layer"])
			}

		case api.PathLayerTwoData:
			require.NoError(t, r.ParseForm())

			raw, err := base64.StdEncoding.DecodeString(r.PostFormValue("layer_two_input_data"))
			require.NoError(t, err)
			var payload map[string]any
			require.NoError(t, json.Unmarshal(raw, &payload))

			switch int(payload["layer"].(float64)) {
			case 2:
				require.Equal(t, "s1", payload["topic_id"])
				navReply(t, w, map[string]any{"data": map[string]any{"list": []any{
					map[string]any{"id": "t1", "title": "Topic"},
				}}})
			case 3:
				require.Equal(t, "t1", payload["topic_id"])
				navReply(t, w, map[string]any{"data": map[string]any{"list": []any{
					map[string]any{"id": "a1", "title": "Asset One", "payload": map[string]any{"tile_id": "11"}},
					map[string]any{"id": "a2", "title": "Asset Two", "payload": map[string]any{"tile_id": "12"}},
					map[string]any{"id": "a3", "title": "Asset Three", "payload": map[string]any{"tile_id": "13"}},
				}}})
			default:
				t.Errorf("unexpected layer_two layer %v", payload["layer"])
			}

		case api.PathMetaSource:
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			payload := codec.DecryptJSON(string(body), crypto.KeySession)
			require.NotNil(t, payload)

			var data map[string]any
			switch payload["name"] {
			case "a1_0_0":
				data = map[string]any{"bitrate_urls": []any{
					map[string]any{"url": "https://cdn.example.com/a1-low.mp4?Expires=1"},
					map[string]any{"url": "https://cdn.example.com/a1-high.mp4?Expires=2"},
				}}
			case "a3_0_0":
				data = map[string]any{"link": "https://cdn.example.com/a3.pdf?Expires=3"}
			default:
				data = map[string]any{} // a2: vendor returned nothing usable
			}
			wire, err := codec.Encrypt(map[string]any{"data": data}, crypto.KeySession)
			require.NoError(t, err)
			_, _ = w.Write([]byte(wire))

		default:
			http.NotFound(w, r)
		}
	}
}

func TestTraverser_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(hierarchyStub(t))
	defer srv.Close()

	client := newSessionClient(t, srv.URL)
	traverser := NewTraverser(client, NewResolver(client, logger.NewNop()), logger.NewNop())

	j := model.NewJob("job-1", 42, "19376")
	m, err := NewManifest(t.TempDir(), "19376")
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, traverser.Run(context.Background(), "19376", j, m))

	// Two assets resolve, one is a gap.
	records := j.RecordList()
	require.Len(t, records, 2)
	require.Equal(t, 1, j.GapCount())

	sort.Slice(records, func(i, k int) bool { return records[i].Title < records[k].Title })
	require.Equal(t, "Asset One", records[0].Title)
	require.Equal(t, "https://cdn.example.com/a1-high.mp4", records[0].URL)
	require.Equal(t, model.KindVideo, records[0].Kind)
	require.Equal(t, "Asset Three", records[1].Title)
	require.Equal(t, "https://cdn.example.com/a3.pdf", records[1].URL)
	require.Equal(t, model.KindPDF, records[1].Kind)

	// The manifest carries exactly the two resolved lines plus the course
	// header, and parses back into the same records.
	raw, err := os.ReadFile(m.Path())
	require.NoError(t, err)
	require.Contains(t, string(raw), "Course: Course One (ID: c1)")

	var entryLines int
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.Contains(line, ":http") {
			entryLines++
		}
	}
	require.Equal(t, 2, entryLines)

	parsed := ParseManifest(strings.NewReader(string(raw)))
	require.Len(t, parsed, 2)
}

func TestTraverser_EmptyBatch(t *testing.T) {
	// A batch whose course listing decodes to nothing yields an empty job,
	// not an error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "not-decodable"})
	}))
	defer srv.Close()

	client := newSessionClient(t, srv.URL)
	traverser := NewTraverser(client, NewResolver(client, logger.NewNop()), logger.NewNop())

	j := model.NewJob("job-1", 42, "404")
	m, err := NewManifest(t.TempDir(), "404")
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, traverser.Run(context.Background(), "404", j, m))
	require.Empty(t, j.RecordList())
}

func TestParseManifest(t *testing.T) {
	input := `
================================================================================
Course: Algebra Basics (ID: c1)
Info: 2026 batch
================================================================================

Lecture 01:https://cdn.example.com/l1.mp4
Lecture 02 : extra colons:https://cdn.example.com/l2.pdf
https://cdn.example.com/bare-file.mp4?Expires=9
not a url line
`

	records := ParseManifest(strings.NewReader(input))
	require.Len(t, records, 3)

	require.Equal(t, "Lecture 01", records[0].Title)
	require.Equal(t, "https://cdn.example.com/l1.mp4", records[0].URL)

	require.Equal(t, "Lecture 02 : extra colons", records[1].Title)
	require.Equal(t, "https://cdn.example.com/l2.pdf", records[1].URL)

	require.Equal(t, "bare-file", records[2].Title)
	require.Equal(t, "https://cdn.example.com/bare-file.mp4?Expires=9", records[2].URL)
}

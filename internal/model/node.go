package model

import "strconv"

// Layer is the depth of a node in the four-level content hierarchy.
type Layer int

// Hierarchy layers, from batch root to transferable leaf.
const (
	LayerCourse  Layer = 0
	LayerSubject Layer = 1
	LayerTopic   Layer = 2
	LayerAsset   Layer = 3
)

// String returns the human readable layer name.
func (l Layer) String() string {
	switch l {
	case LayerCourse:
		return "course"
	case LayerSubject:
		return "subject"
	case LayerTopic:
		return "topic"
	case LayerAsset:
		return "asset"
	default:
		return "unknown"
	}
}

// TreeNode is one node of the content hierarchy. Nodes are read-only once
// materialized by the traverser.
type TreeNode struct {
	ID       string
	Title    string
	ParentID string
	Layer    Layer
	// Payload carries the raw response fields an asset leaf needs for
	// resolution (tile id and similar); nil for non-leaf layers.
	Payload map[string]any
}

// TileID returns the tile identifier from the node payload, or "" if absent.
func (n *TreeNode) TileID() string {
	if n.Payload == nil {
		return ""
	}
	return PayloadString(n.Payload, "tile_id")
}

// PayloadString renders a payload value that may arrive as a JSON string or
// number. Tile and node ids show up as either depending on the endpoint.
func PayloadString(payload map[string]any, key string) string {
	switch t := payload[key].(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	default:
		return ""
	}
}

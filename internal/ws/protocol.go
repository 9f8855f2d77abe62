package ws

import (
	"encoding/json"

	"github.com/cpudash/cpudash/internal/hub"
)

// RealtimePath is the WebSocket endpoint that streams CPU snapshots.
const RealtimePath = "/realtime/cpus"

// EncodeSnapshot renders snap as the JSON array of numbers that makes up one
// text frame, e.g. [12.5,8,45.3]. A nil snapshot encodes as [].
func EncodeSnapshot(snap hub.Snapshot) ([]byte, error) {
	if snap == nil {
		snap = hub.Snapshot{}
	}
	return json.Marshal([]float64(snap))
}

// DecodeSnapshot parses one text frame produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (hub.Snapshot, error) {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return hub.Snapshot(values), nil
}

package delineation

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yungbote/catchment-service/internal/catchment"
)

// Mock writes a small deterministic polygon for any reach. It exists so the
// service can run without the hydrography dataset.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   geometry       `json:"geometry"`
}

type geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

func (m *Mock) Resolve(ctx context.Context, req catchment.ResolveRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Dir == "" || req.BaseName == "" {
		return "", fmt.Errorf("workspace dir and base name required")
	}

	h := sha256.Sum256([]byte(req.Reachcode))
	lon := -125 + float64(binary.LittleEndian.Uint32(h[0:4])%5800)/100
	lat := 25 + float64(binary.LittleEndian.Uint32(h[4:8])%2400)/100
	size := 0.01 + req.Measure/10000

	fc := featureCollection{
		Type: "FeatureCollection",
		Features: []feature{{
			Type: "Feature",
			Properties: map[string]any{
				"reachcode": req.Reachcode,
				"measure":   req.Measure,
			},
			Geometry: geometry{
				Type: "Polygon",
				Coordinates: [][][2]float64{{
					{lon, lat},
					{lon + size, lat},
					{lon + size, lat + size},
					{lon, lat + size},
					{lon, lat},
				}},
			},
		}},
	}
	b, err := json.Marshal(fc)
	if err != nil {
		return "", err
	}
	name := req.BaseName + ".geojson"
	if err := os.WriteFile(filepath.Join(req.Dir, name), b, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

package exporter

import (
	"encoding/json"
	"fmt"
	"os"

	"permitpulse/pkg/contracts/domain"
)

// GeoJSON feature kinds carried in feature properties.
const (
	featureKindDensity = "density"
	featureKindOutlier = "outlier"
)

type geoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   geoJSONGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONGeometry struct {
	Type string `json:"type"`
	// Coordinates are [longitude, latitude] per RFC 7946.
	Coordinates []float64 `json:"coordinates"`
}

// writePermitMap writes the map data handoff: one density point per clean
// permit plus one marker per cost outlier, carrying the popup text a map
// renderer displays.
func (e *ReportExporter) writePermitMap(result *domain.RunResult) error {
	collection := buildPermitMap(result)

	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal permit map: %w", err)
	}
	return os.WriteFile(e.paths.PermitMapGeoJSON, data, 0644)
}

// buildPermitMap assembles the feature collection: density features first
// in clean-set order, then outlier markers in clean-set order.
func buildPermitMap(result *domain.RunResult) geoJSONFeatureCollection {
	clean := result.CleanPermits
	outliers := result.Aggregates.CostOutliers.Records

	features := make([]geoJSONFeature, 0, len(clean)+len(outliers))

	for i := range clean {
		p := &clean[i]
		features = append(features, geoJSONFeature{
			Type: "Feature",
			Geometry: geoJSONGeometry{
				Type:        "Point",
				Coordinates: []float64{p.Longitude, p.Latitude},
			},
			Properties: map[string]interface{}{
				"kind":   featureKindDensity,
				"weight": 1,
			},
		})
	}

	for i := range outliers {
		p := &outliers[i]
		features = append(features, geoJSONFeature{
			Type: "Feature",
			Geometry: geoJSONGeometry{
				Type:        "Point",
				Coordinates: []float64{p.Longitude, p.Latitude},
			},
			Properties: map[string]interface{}{
				"kind":        featureKindOutlier,
				"cost":        p.Cost(),
				"permit_type": p.PermitTypeMapped,
				"address":     p.OriginalAddress1,
				"popup": fmt.Sprintf("Cost: %s<br>Type: %s<br>Address: %s",
					formatCurrency(p.Cost()), p.PermitTypeMapped, p.OriginalAddress1),
			},
		})
	}

	return geoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

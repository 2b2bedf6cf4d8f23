package api

// OverpassResponse is the JSON document returned by an Overpass interpreter
// for an `[out:json]` query.
type OverpassResponse struct {
	Version   float64           `json:"version"`
	Generator string            `json:"generator"`
	Elements  []OverpassElement `json:"elements"`
}

// OverpassElement is a single OSM node returned by the fuel query.
type OverpassElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// Tag returns the value of an OSM tag, or "" if the element doesn't carry it.
func (e *OverpassElement) Tag(key string) string {
	if e.Tags == nil {
		return ""
	}
	return e.Tags[key]
}

// OSRMResponse is the subset of the OSRM route service response we consume.
type OSRMResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []OSRMRoute `json:"routes"`
}

// OSRMRoute is one alternative route. Distance is in meters, duration in seconds.
type OSRMRoute struct {
	Geometry struct {
		Type        string      `json:"type"`
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

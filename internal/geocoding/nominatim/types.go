package nominatim

// SearchResult represents a single geocoding result from the Nominatim
// search endpoint (format=jsonv2).
type SearchResult struct {
	PlaceID     int64   `json:"place_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Type        string  `json:"type"`
	Class       string  `json:"class"`
	Importance  float64 `json:"importance"`
	OSMID       int64   `json:"osm_id"`
	OSMType     string  `json:"osm_type"`
}

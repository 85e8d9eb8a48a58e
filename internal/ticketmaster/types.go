package ticketmaster

// SearchResponse is the Discovery API envelope for an event search
// (format: HAL, events nested under _embedded).
type SearchResponse struct {
	Embedded *Embedded `json:"_embedded,omitempty"`
	Page     PageInfo  `json:"page"`
}

// Embedded wraps the event list.
type Embedded struct {
	Events []Event `json:"events"`
}

// PageInfo is the Discovery API paging metadata.
type PageInfo struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

// Event is a single Discovery API event.
type Event struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	URL         string         `json:"url,omitempty"`
	Dates       Dates          `json:"dates"`
	Images      []Image        `json:"images,omitempty"`
	PriceRanges []PriceRange   `json:"priceRanges,omitempty"`
	Embedded    *EventEmbedded `json:"_embedded,omitempty"`
}

// Dates holds the event start information.
type Dates struct {
	Start DateStart `json:"start"`
}

// DateStart carries the start timestamp. DateTime is RFC 3339 UTC when the
// provider knows the exact time; otherwise only LocalDate may be set.
type DateStart struct {
	DateTime  string `json:"dateTime,omitempty"`
	LocalDate string `json:"localDate,omitempty"`
}

// Image is one promotional image.
type Image struct {
	URL string `json:"url"`
}

// PriceRange is one listed price range for the event.
type PriceRange struct {
	Type     string   `json:"type,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

// EventEmbedded wraps the venues nested under an event.
type EventEmbedded struct {
	Venues []Venue `json:"venues"`
}

// Venue is the event venue with optional coordinates.
type Venue struct {
	Name     string    `json:"name,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// Location carries venue coordinates. The Discovery API returns them as
// decimal strings.
type Location struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

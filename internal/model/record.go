package model

import "time"

// PhoneNumber is a validated contact number in the configured numbering plan.
type PhoneNumber struct {
	Raw           string `json:"raw"`
	International string `json:"international"` // +<country><subscriber>
	Local         string `json:"local"`         // trunk digit + subscriber
	IsMobile      bool   `json:"is_mobile"`
	Region        string `json:"region,omitempty"` // landline area name, empty if unknown
}

// Location holds coordinates extracted from the detail view.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	District  string  `json:"district,omitempty"`
}

// BusinessRecord is one extracted business. Phone numbers keep discovery order.
type BusinessRecord struct {
	Name         string        `json:"name"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers"`
	Address      string        `json:"address,omitempty"`
	Category     string        `json:"category,omitempty"`
	Rating       *float64      `json:"rating,omitempty"`
	ReviewsCount *int          `json:"reviews_count,omitempty"`
	Website      string        `json:"website,omitempty"`
	WebsiteOK    *bool         `json:"website_ok,omitempty"` // set by the probe when enabled
	Location     *Location     `json:"location,omitempty"`
	ExtractedAt  time.Time     `json:"extracted_at"`
}

package domain

import "time"

type Listing struct {
	ID          int64      `json:"productId"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Price       float64    `json:"price"`
	Quantity    int        `json:"quantity"`
	Freshness   float64    `json:"freshness"`
	HarvestDate *time.Time `json:"dateOfHarvest,omitempty"`
	Image       string     `json:"image,omitempty"`
	OwnerID     int64      `json:"farmerId"`
}

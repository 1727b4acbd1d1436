// Package marketsim drives a running market server end to end: it lists
// players, pages through every search index, races purchases and checks that
// money and rosters stay consistent.
package marketsim

import (
	"fmt"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Secret   string        // HS256 secret shared with the server
	Issuer   string        // Token issuer, if the server checks one
	Teams    int           // Number of seeded teams (team-001, ...)
	Listings int           // Players listed per team
	Buyers   int           // Competing buyers per listing
	Workers  int           // Number of concurrent workers
	PageSize int           // Page size used when walking the indexes
	Timeout  time.Duration // HTTP request timeout
	LogFile  string        // Log file for run output
	Verbose  bool          // Enable verbose logging
}

// TeamIDs returns the ids of the seeded teams.
func (c *Config) TeamIDs() []string {
	ids := make([]string, c.Teams)
	for i := range ids {
		ids[i] = fmt.Sprintf("team-%03d", i+1)
	}
	return ids
}

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("base url must not be empty")
	case c.Secret == "":
		return fmt.Errorf("secret must not be empty")
	case c.Teams < 2:
		return fmt.Errorf("at least two teams are required, got %d", c.Teams)
	case c.Listings <= 0:
		return fmt.Errorf("listings must be positive, got %d", c.Listings)
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.PageSize <= 0:
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	return nil
}

// Listing is an offer placed during the run.
type Listing struct {
	PlayerID string
	Seller   string
	Country  string
	Position string
	Price    string
}

// Stats holds run statistics.
type Stats struct {
	OffersCreated     int
	OffersFailed      int
	SearchQueries     int
	SearchPages       int
	OffersSeen        int
	PurchaseAttempts  int
	Purchases         int
	PurchasesRejected int
	PurchasesFailed   int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

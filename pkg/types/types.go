package types

import (
	"cloud.google.com/go/civil"
)

// TripRecord is a single bus departure as reported by the reference server.
// City, Country and Date are stamped by the fetcher from the request, so every
// record in a daily blob carries the blob's own date.
type TripRecord struct {
	City           string     `json:"city"`
	Country        string     `json:"country"`
	Date           civil.Date `json:"date"`
	BusID          string     `json:"busId"`
	PassengerCount int        `json:"passengerCount"`
	HadAccident    bool       `json:"hadAccident"`
	DelayMinutes   float64    `json:"delayMinutes"`
}

// CountryDayStat summarizes all departures for one country on one day.
type CountryDayStat struct {
	Country             string     `json:"country"`
	Date                civil.Date `json:"date"`
	BusCount            int        `json:"busCount"`
	TotalPassengers     int        `json:"totalPassengers"`
	HadAccident         bool       `json:"hadAccident"`
	AverageDelayMinutes float64    `json:"averageDelayMinutes"`
	// NoData is set when the stat was finalized over zero records, in which
	// case AverageDelayMinutes is reported as zero rather than NaN.
	NoData bool `json:"noData,omitempty"`
}

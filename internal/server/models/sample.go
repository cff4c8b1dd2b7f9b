package models

import (
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/timex"
)

// Sample is a single heart-rate observation. Samples are append-only.
type Sample struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observedAt"`
}

// DailyAggregate is the running summary for one user and one canonical day.
//
// Mean is recency weighted: every new sample moves it halfway towards the
// sample value, so it is not the arithmetic mean of the day.
type DailyAggregate struct {
	UserID      int64      `json:"userId"`
	Day         timex.Date `json:"day"`
	Mean        float64    `json:"mean"`
	Min         float64    `json:"min"`
	Max         float64    `json:"max"`
	SampleCount int64      `json:"sampleCount"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

package domain

import (
	"context"
	"time"

	"github.com/couchcryptid/storm-data-pros/internal/pros"
)

// NoDataValue stands in for NaN cells on the wire.
const NoDataValue = -9999

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// GridJob is one classification request.
type GridJob struct {
	ID           string             `json:"id,omitempty"`
	Method       string             `json:"method,omitempty"`
	Threshold    any                `json:"threshold,omitempty"` // number, or [low, high]
	Labels       []string           `json:"labels"`
	Fields       [][][]float64      `json:"fields"`
	Reflectivity [][]float64        `json:"reflectivity,omitempty"`
	Geo          *pros.GeoReference `json:"geo,omitempty"`
}

// ClassifiedGrid is the outcome of a GridJob.
type ClassifiedGrid struct {
	ID            string             `json:"id"`
	Method        string             `json:"method"`
	Rows          int                `json:"rows"`
	Cols          int                `json:"cols"`
	Probabilistic bool               `json:"probabilistic"`
	Result        [][]float64        `json:"result"`
	SnowFraction  [][]float64        `json:"snow_fraction,omitempty"` // linear_tr only
	Combined      [][]int            `json:"combined,omitempty"`      // present when the job had reflectivity
	Notices       []pros.Notice      `json:"notices,omitempty"`
	Geo           *pros.GeoReference `json:"geo,omitempty"`
	ProcessedAt   time.Time          `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

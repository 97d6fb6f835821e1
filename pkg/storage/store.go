// Package storage provides pipeline snapshot storage implementations.
//
// A snapshot is the complete, atomically-published state of one station's
// pipeline: retained history, current predictions, and the congestion alert.
// Stores keep the latest snapshot per station for presentation layers to
// poll; they are not a historical archive.
package storage

import (
	"context"
	"time"

	"github.com/citygrid/trafficpulse/pkg/traffic"
)

// Snapshot is the queryable result of one pipeline tick.
type Snapshot struct {
	Station        string                `json:"station"`
	GeneratedAt    time.Time             `json:"generatedAt"`
	StepSeconds    int                   `json:"stepSeconds"`
	HorizonSeconds int                   `json:"horizonSeconds"`
	State          traffic.State         `json:"state"`
	History        []traffic.Observation `json:"history"`
	Predictions    []traffic.Prediction  `json:"predictions"`
	Alert          traffic.AlertState    `json:"alert"`
}

// Store persists the latest snapshot per station.
type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context, station string) (Snapshot, bool, error)
}

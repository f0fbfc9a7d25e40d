package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/dogwalking/mobility-core/internal/models"
	"github.com/dogwalking/mobility-core/internal/temporal"
)

type fakeMQTTClient struct {
	mu        sync.Mutex
	published []string
}

func (f *fakeMQTTClient) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, topic)
	return nil
}

func (f *fakeMQTTClient) SetRetryPolicy(retries int, backoff time.Duration) {}

type fakeTimescaleDB struct {
	mu sync.Mutex
}

func (f *fakeTimescaleDB) BatchSaveLocations(ctx context.Context, locations []*models.Location) error {
	return nil
}

func (f *fakeTimescaleDB) SaveTrack(ctx context.Context, sessionID string, track temporal.Temporal) error {
	return nil
}

func (f *fakeTimescaleDB) GetSessionStatistics(ctx context.Context, walkID string) (*models.TrackingStatistics, error) {
	return &models.TrackingStatistics{}, nil
}

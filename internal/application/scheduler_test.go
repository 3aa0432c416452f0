package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geonode/geonode/internal/ports/output"
)

func TestSchedulerTriggerSyncRateLimited(t *testing.T) {
	storage := &mockStorage{
		objects: []output.StorageObject{{Key: "dem.tif"}},
		content: map[string]string{"dem.tif": "tif"},
	}
	scheduler := NewIngestScheduler(newTestIngest(t, storage, &mockUploader{}), time.Hour, time.Hour, testLogger())

	result, err := scheduler.TriggerSync(context.Background())
	if err != nil {
		t.Fatalf("TriggerSync() error = %v", err)
	}
	if result.DataSetsAdded != 1 || result.DataSetsTotal != 1 {
		t.Errorf("result = %+v, want 1 added of 1", result)
	}
	if result.SyncedAt.IsZero() {
		t.Error("SyncedAt should be set")
	}

	if _, err := scheduler.TriggerSync(context.Background()); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second TriggerSync() error = %v, want ErrRateLimited", err)
	}
}

func TestSchedulerTriggerSyncListError(t *testing.T) {
	storage := &mockStorage{listErr: errors.New("bucket unreachable")}
	scheduler := NewIngestScheduler(newTestIngest(t, storage, &mockUploader{}), time.Hour, 0, testLogger())

	if _, err := scheduler.TriggerSync(context.Background()); err == nil {
		t.Error("TriggerSync() should return the listing error")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	uploader := &mockUploader{}
	storage := &mockStorage{
		objects: []output.StorageObject{{Key: "dem.tif"}},
		content: map[string]string{"dem.tif": "tif"},
	}
	scheduler := NewIngestScheduler(newTestIngest(t, storage, uploader), 10*time.Millisecond, time.Minute, testLogger())

	scheduler.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for {
		uploader.mu.Lock()
		n := len(uploader.uploaded)
		uploader.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scheduled ingest did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}
	scheduler.Stop()

	if scheduler.Interval() != 10*time.Millisecond {
		t.Errorf("Interval() = %v", scheduler.Interval())
	}
}

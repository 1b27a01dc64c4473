package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/subvoc/subvoc/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	// Create a mini Redis server for testing
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0, 5*time.Minute)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Health(ctx); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestCache_VideoOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	video := &models.Video{
		ID:              "test-video-1",
		AccountID:       "account-1",
		VideoURL:        "http://localhost:9000/media/videos/test.mp4",
		OriginalName:    "test.mp4",
		DurationMinutes: 2.5,
		Language:        "en",
		Status:          models.VideoStatusQueued,
	}

	// Miss before set
	got, err := cache.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if got != nil {
		t.Error("Expected cache miss before set")
	}

	// Set and hit
	if err := cache.SetVideo(ctx, video); err != nil {
		t.Fatalf("SetVideo failed: %v", err)
	}

	got, err = cache.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected cache hit after set")
	}
	if got.Status != models.VideoStatusQueued || got.DurationMinutes != 2.5 {
		t.Errorf("Cached video mismatch: %+v", got)
	}

	// Invalidate and miss again
	if err := cache.InvalidateVideo(ctx, video.ID); err != nil {
		t.Fatalf("InvalidateVideo failed: %v", err)
	}

	got, err = cache.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if got != nil {
		t.Error("Expected cache miss after invalidation")
	}
}

func TestCache_UsageOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	summary := &models.UsageSummary{
		Email:            "user@example.com",
		MinutesConsumed:  35,
		FreeMinutesUsed:  30,
		TotalCost:        6.25,
		MinutesRemaining: 0,
		CostPerMinute:    1.25,
		AllowedMinutes:   30,
	}

	if err := cache.SetUsage(ctx, "account-1", summary); err != nil {
		t.Fatalf("SetUsage failed: %v", err)
	}

	got, err := cache.GetUsage(ctx, "account-1")
	if err != nil {
		t.Fatalf("GetUsage failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected cache hit after set")
	}
	if got.TotalCost != 6.25 {
		t.Errorf("Expected total cost 6.25, got %f", got.TotalCost)
	}

	if err := cache.InvalidateUsage(ctx, "account-1"); err != nil {
		t.Fatalf("InvalidateUsage failed: %v", err)
	}

	got, err = cache.GetUsage(ctx, "account-1")
	if err != nil {
		t.Fatalf("GetUsage failed: %v", err)
	}
	if got != nil {
		t.Error("Expected cache miss after invalidation")
	}
}

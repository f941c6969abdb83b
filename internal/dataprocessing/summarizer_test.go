package dataprocessing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "permitpulse/internal/errors"
	"permitpulse/pkg/contracts/domain"
)

func TestNewSummarizer(t *testing.T) {
	summarizer := NewSummarizer(nil)

	assert.NotNil(t, summarizer)
	assert.NotNil(t, summarizer.logger, "nil logger falls back to default")
}

func TestSummarizer_GenerateFromRecords(t *testing.T) {
	ctx := context.Background()
	summarizer := NewSummarizer(nil)

	clean := []domain.CleanPermit{
		cleanPermit(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), floatPtr(100), "RESIDENTIAL"),
		cleanPermit(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), floatPtr(200), "COMMERCIAL"),
		cleanPermit(time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), floatPtr(600), "RESIDENTIAL"),
		cleanPermit(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), nil, "RESIDENTIAL"),
	}

	metrics, err := summarizer.GenerateFromRecords(ctx, clean)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	// Every clean permit counts; value metrics cover priced permits only.
	assert.Equal(t, 4, metrics.TotalPermits)
	assert.Equal(t, 900.0, metrics.TotalValue)
	assert.Equal(t, 300.0, metrics.AvgValue)
	assert.Equal(t, 200.0, metrics.MedianValue)
	assert.Equal(t, "RESIDENTIAL", metrics.MostCommonType)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), metrics.DateRangeStart)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), metrics.DateRangeEnd)
}

func TestSummarizer_SingleRecord(t *testing.T) {
	ctx := context.Background()
	summarizer := NewSummarizer(nil)

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	clean := []domain.CleanPermit{
		cleanPermit(day, floatPtr(7500), "PLUMBING"),
	}

	metrics, err := summarizer.GenerateFromRecords(ctx, clean)
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.TotalPermits)
	assert.Equal(t, 7500.0, metrics.TotalValue)
	assert.Equal(t, 7500.0, metrics.AvgValue)
	assert.Equal(t, 7500.0, metrics.MedianValue)
	assert.Equal(t, "PLUMBING", metrics.MostCommonType)
	assert.Equal(t, day, metrics.DateRangeStart)
	assert.Equal(t, day, metrics.DateRangeEnd)
}

func TestSummarizer_EmptyCleanSet(t *testing.T) {
	ctx := context.Background()
	summarizer := NewSummarizer(nil)

	metrics, err := summarizer.GenerateFromRecords(ctx, []domain.CleanPermit{})

	assert.Nil(t, metrics)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTypeEmptyDataset))
}

func TestSummarizer_AllCostsMissing(t *testing.T) {
	ctx := context.Background()
	summarizer := NewSummarizer(nil)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clean := []domain.CleanPermit{
		cleanPermit(day, nil, "RESIDENTIAL"),
		cleanPermit(day, nil, "COMMERCIAL"),
		cleanPermit(day, nil, "RESIDENTIAL"),
	}

	metrics, err := summarizer.GenerateFromRecords(ctx, clean)

	assert.Nil(t, metrics)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTypeEmptyDataset))

	// The error still reports how many permits were present.
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 3, appErr.Context["total_permits"])
}

func TestSummarizer_ModeTieBreak(t *testing.T) {
	ctx := context.Background()
	summarizer := NewSummarizer(nil)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// RESIDENTIAL and COMMERCIAL both occur twice; RESIDENTIAL appears
	// first in the clean set, so it is the mode.
	clean := []domain.CleanPermit{
		cleanPermit(day, floatPtr(1), "RESIDENTIAL"),
		cleanPermit(day, floatPtr(1), "COMMERCIAL"),
		cleanPermit(day, floatPtr(1), "COMMERCIAL"),
		cleanPermit(day, floatPtr(1), "RESIDENTIAL"),
	}

	metrics, err := summarizer.GenerateFromRecords(ctx, clean)
	require.NoError(t, err)

	assert.Equal(t, "RESIDENTIAL", metrics.MostCommonType)
}

func TestSummarizer_DateRangeIgnoresInputOrder(t *testing.T) {
	ctx := context.Background()
	summarizer := NewSummarizer(nil)

	earliest := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	clean := []domain.CleanPermit{
		cleanPermit(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), floatPtr(10), "A"),
		cleanPermit(latest, floatPtr(10), "A"),
		cleanPermit(earliest, floatPtr(10), "A"),
		cleanPermit(time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC), floatPtr(10), "A"),
	}

	metrics, err := summarizer.GenerateFromRecords(ctx, clean)
	require.NoError(t, err)

	assert.Equal(t, earliest, metrics.DateRangeStart)
	assert.Equal(t, latest, metrics.DateRangeEnd)
}

func TestSummarizer_MedianEvenCount(t *testing.T) {
	ctx := context.Background()
	summarizer := NewSummarizer(nil)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clean := []domain.CleanPermit{
		cleanPermit(day, floatPtr(400), "A"),
		cleanPermit(day, floatPtr(100), "A"),
		cleanPermit(day, floatPtr(300), "A"),
		cleanPermit(day, floatPtr(200), "A"),
	}

	metrics, err := summarizer.GenerateFromRecords(ctx, clean)
	require.NoError(t, err)

	assert.Equal(t, 250.0, metrics.MedianValue, "even count takes the mean of the middle pair")
}

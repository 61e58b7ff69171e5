package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vindel10/vindel-api/internal/models"
	appErrors "github.com/vindel10/vindel-api/pkg/errors"
	"github.com/vindel10/vindel-api/pkg/jobs"
)

type fakeVisitRepo struct {
	mu     sync.Mutex
	visits []models.Visit
	daily  []models.DailyVisits
	since  time.Time
}

func (f *fakeVisitRepo) Record(_ context.Context, visit *models.Visit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits = append(f.visits, *visit)
	return nil
}

func (f *fakeVisitRepo) DailyCounts(_ context.Context, _ string, since time.Time) ([]models.DailyVisits, error) {
	f.since = since
	return f.daily, nil
}

func (f *fakeVisitRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visits)
}

func newTestVisitService() (*VisitService, *fakeVisitRepo) {
	repo := &fakeVisitRepo{}
	listings := newFakeListingRepo()
	listings.put(models.ListingDocument{ID: "l1", OwnerID: sp("u1"), ViewCount: 9})
	svc := NewVisitService(repo, listings, jobs.QueueConfig{Workers: 2, BufferSize: 16}, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC) }
	return svc, repo
}

func TestVisitTrackIsRecordedByWorkers(t *testing.T) {
	svc, repo := newTestVisitService()
	svc.Start(context.Background())
	defer svc.Stop()

	for i := 0; i < 5; i++ {
		svc.Track(models.Visit{ListingID: "l1", UserAgent: "test"})
	}
	svc.Track(models.Visit{})

	require.Eventually(t, func() bool {
		return repo.count() == 5 && svc.QueueStats().Processed == 5
	}, time.Second, 5*time.Millisecond)
}

func TestVisitStatsZeroFillsDays(t *testing.T) {
	svc, repo := newTestVisitService()
	repo.daily = []models.DailyVisits{
		{Day: time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC), Visits: 3},
		{Day: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), Visits: 1},
	}

	stats, err := svc.Stats(context.Background(), owner("u1"), "l1", 3)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC), repo.since)
	require.Len(t, stats.Daily, 3)
	assert.Equal(t, []int{3, 0, 1}, []int{stats.Daily[0].Visits, stats.Daily[1].Visits, stats.Daily[2].Visits})
	assert.Equal(t, int64(9), stats.ViewCount)

	_, err = svc.Stats(context.Background(), owner("u2"), "l1", 3)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	stats, err = svc.Stats(context.Background(), admin(), "l1", 1000)
	require.NoError(t, err)
	assert.Equal(t, maxStatsDays, stats.Days)
}

func TestVisitExport(t *testing.T) {
	svc, repo := newTestVisitService()
	repo.daily = []models.DailyVisits{{Day: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), Visits: 7}}

	file, err := svc.Export(context.Background(), owner("u1"), "l1", 2, "CSV")
	require.NoError(t, err)
	assert.Equal(t, "visits-l1-20240510.csv", file.Filename)
	assert.Contains(t, string(file.Data), "2024-05-10,7")

	file, err = svc.Export(context.Background(), owner("u1"), "l1", 2, "pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
	assert.Equal(t, "application/pdf", file.ContentType)

	_, err = svc.Export(context.Background(), owner("u1"), "l1", 2, "xlsx")
	require.Error(t, err)
}

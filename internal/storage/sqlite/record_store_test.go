package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/website-audit/internal/audit"
)

func openTestStore(t *testing.T) *RecordStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "audits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "")
	require.Error(t, err)
}

func TestRecordLifecycle(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	err := store.CreateRecord(ctx, audit.Record{
		ID:         "id-1",
		WebsiteURL: "acme.test",
		SocialURL:  "https://social.test/acme",
		Status:     audit.StatusProcessing,
		CreatedAt:  created,
		UpdatedAt:  created,
	})
	require.NoError(t, err)

	pending, err := store.GetRecord(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, audit.StatusProcessing, pending.Status)
	require.Nil(t, pending.OverallScore)
	require.Nil(t, pending.Results)
	require.Empty(t, pending.Email)
	require.Equal(t, "https://social.test/acme", pending.SocialURL)
	require.True(t, created.Equal(pending.CreatedAt))

	updated := created.Add(4 * time.Second)
	report := audit.Report{
		WebsiteURL:         "https://acme.test",
		OverallScore:       69,
		TopRecommendations: []string{"Clarify the headline"},
		Agents: map[audit.TaskName]audit.AgentResult{
			audit.TaskSEO: {Score: 75, Insights: []string{"ok"}, Recommendations: []string{"meta"}},
		},
	}
	require.NoError(t, store.UpdateRecord(ctx, "id-1", audit.RecordUpdate{
		Status:       audit.StatusCompleted,
		OverallScore: 69,
		Results:      report,
		UpdatedAt:    updated,
	}))

	final, err := store.GetRecord(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, audit.StatusCompleted, final.Status)
	require.Equal(t, 69, *final.OverallScore)
	require.Equal(t, report.TopRecommendations, final.Results.TopRecommendations)
	require.Equal(t, 75, final.Results.Agents[audit.TaskSEO].Score)
	require.True(t, updated.Equal(final.UpdatedAt))
}

func TestDuplicateAndMissing(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	record := audit.Record{ID: "dup", WebsiteURL: "a.test", Status: audit.StatusProcessing}

	require.NoError(t, store.CreateRecord(ctx, record))
	require.Error(t, store.CreateRecord(ctx, record))

	_, err := store.GetRecord(ctx, "missing")
	require.ErrorIs(t, err, audit.ErrRecordNotFound)
	err = store.UpdateRecord(ctx, "missing", audit.RecordUpdate{Status: audit.StatusCompleted})
	require.ErrorIs(t, err, audit.ErrRecordNotFound)
}

func TestPing(t *testing.T) {
	t.Parallel()

	require.NoError(t, openTestStore(t).Ping(context.Background()))
}

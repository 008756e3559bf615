package explorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/tablescope/internal/dataset"
	"github.com/vegasq/tablescope/internal/query"
	"github.com/vegasq/tablescope/internal/session"
	"github.com/vegasq/tablescope/internal/view"
)

const testSession = "sess-1"

var (
	alice = Client{RemoteAddr: "10.0.0.1", UserAgent: "test-agent"}
	bob   = Client{RemoteAddr: "10.0.0.2", UserAgent: "test-agent"}
)

func newTestExplorer(t *testing.T, pageSize int) *Explorer {
	t.Helper()
	store := session.NewMemoryStore(session.Options{})
	ex := New(store, query.NewEngine(query.DefaultOptions(), nil), Options{PageSize: pageSize})

	ds, err := dataset.New("people.csv",
		dataset.NewStringColumn("name", []string{"Anna", "Ben", "Cleo", "Dora"}, nil),
		dataset.NewIntColumn("age", []int64{30, 25, 41, 30}, nil),
		dataset.NewStringColumn("city", []string{"Oslo", "Bergen", "Oslo", "Oslo"}, nil),
	)
	require.NoError(t, err)
	require.NoError(t, ex.StoreDataset(context.Background(), alice, testSession, ds))
	return ex
}

func TestExplorer_FilterAndPage(t *testing.T) {
	ex := newTestExplorer(t, 2)
	ctx := context.Background()

	resp, err := ex.FilterAndPage(ctx, alice, PageRequest{
		SessionID: testSession,
		Query:     `city = "Oslo"`,
		Sort:      view.Sort{Column: "age", Descending: true},
		Page:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalCount)
	require.Len(t, resp.Rows, 2)
	name, _ := resp.Rows[0].Get("name")
	assert.Equal(t, "Cleo", name)
	assert.False(t, resp.CountOnly)
	assert.NoError(t, resp.Fault)

	resp, err = ex.FilterAndPage(ctx, alice, PageRequest{SessionID: testSession, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.TotalCount)
	assert.Len(t, resp.Rows, 2)
}

func TestExplorer_CountOnly(t *testing.T) {
	ex := newTestExplorer(t, 0)

	resp, err := ex.FilterAndPage(context.Background(), alice, PageRequest{
		SessionID: testSession,
		Query:     `COUNT(age = "30")`,
	})
	require.NoError(t, err)
	assert.True(t, resp.CountOnly)
	assert.Equal(t, 2, resp.TotalCount)
}

func TestExplorer_SessionErrors(t *testing.T) {
	ex := newTestExplorer(t, 0)
	ctx := context.Background()

	_, err := ex.FilterAndPage(ctx, bob, PageRequest{SessionID: testSession})
	assert.ErrorIs(t, err, ErrSessionNotFound, "foreign client must not see the session")

	_, err = ex.AnalyzeColumn(ctx, alice, AnalyzeRequest{SessionID: "unknown", Column: "city"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, ex.DeleteSession(ctx, testSession))
	require.NoError(t, ex.DeleteSession(ctx, testSession))
	_, err = ex.Dataset(ctx, alice, testSession)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExplorer_AnalyzeColumn(t *testing.T) {
	ex := newTestExplorer(t, 0)
	ctx := context.Background()

	stats, err := ex.AnalyzeColumn(ctx, alice, AnalyzeRequest{
		SessionID: testSession,
		Column:    "age",
		Query:     `city = "Oslo"`,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRows)
	assert.Equal(t, 2, stats.DistinctCount)
	assert.Equal(t, []view.ValueCount{{Value: "30", Count: 2}, {Value: "41", Count: 1}}, stats.TopValues)

	_, err = ex.AnalyzeColumn(ctx, alice, AnalyzeRequest{SessionID: testSession, Column: "owner"})
	assert.ErrorIs(t, err, view.ErrColumnNotFound)
	assert.Contains(t, err.Error(), "owner")
}

func TestExplorer_Filtered(t *testing.T) {
	ex := newTestExplorer(t, 0)
	ctx := context.Background()

	ds, err := ex.Filtered(ctx, alice, testSession, `name ~ "a"`)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	// Without a recognizable condition every row is exported.
	ds, err = ex.Filtered(ctx, alice, testSession, `city = "`)
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Len())
}

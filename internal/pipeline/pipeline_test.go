package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/paperselect/internal/embedding"
	"github.com/hyperjump/paperselect/internal/library"
	"github.com/hyperjump/paperselect/internal/models"
	"github.com/hyperjump/paperselect/internal/selection"
	"github.com/hyperjump/paperselect/internal/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const reference = "graph neural networks for molecule property prediction"

func testLibrary() *models.Library {
	return &models.Library{
		Filename: "export.csv",
		Columns:  []string{"Key", "Title", "Abstract Note"},
		Records: []models.Record{
			{"Key": "A", "Title": "Medieval poetry", "Abstract Note": "Courtly love in twelfth century france"},
			{"Key": "B", "Title": "Graph neural networks", "Abstract Note": "Molecule property prediction with message passing"},
			{"Key": "C", "Title": "Soil chemistry", "Abstract Note": ""},
			{"Key": "D", "Title": "Molecule graphs", "Abstract Note": "Neural networks for property prediction"},
			{"Key": "E", "Title": "Baroque music", "Abstract Note": "Counterpoint and harmony"},
		},
	}
}

func TestRun_ScoresInLibraryOrder(t *testing.T) {
	e := embedding.NewHashEmbedder(256)
	p := New(e)
	lib := testLibrary()

	res, err := p.Run(context.Background(), Request{Library: lib, Reference: reference, Method: selection.PolicyMedian})
	require.NoError(t, err)

	require.Len(t, res.Scores, 5)
	require.Len(t, res.Papers, 5)
	refEmb, _ := e.Embed(context.Background(), reference)
	for i, rec := range lib.Records {
		docEmb, _ := e.Embed(context.Background(), library.CombineTitleAbstract(rec["Title"], rec["Abstract Note"], " [SEP] "))
		want, err := similarity.Cosine(docEmb, refEmb)
		require.NoError(t, err)
		assert.InDelta(t, want, res.Scores[i], 1e-9, "score %d", i)
		assert.Equal(t, i, res.Papers[i].Index)
		assert.Equal(t, rec["Key"], res.Papers[i].Record.Get("Key"))
	}

	assert.Equal(t, selection.PolicyMedian, res.Method)
	assert.Equal(t, library.Columns{Title: "Title", Abstract: "Abstract Note"}, res.Columns)
	assert.Equal(t, 1, res.Report.MissingAbstracts())
	assert.Equal(t, 3, res.SelectedCount())
	require.NotNil(t, res.Statistics.Threshold)
	assert.Equal(t, res.Threshold, *res.Statistics.Threshold)
	assert.Equal(t, 3, *res.Statistics.SelectedCount)
}

func TestRun_SelectedPapersSortedByScore(t *testing.T) {
	res, err := New(embedding.NewHashEmbedder(256)).Run(context.Background(),
		Request{Library: testLibrary(), Reference: reference, Method: selection.PolicyMedian})
	require.NoError(t, err)

	selected := res.SelectedPapers()
	require.Len(t, selected, res.SelectedCount())
	for i := 1; i < len(selected); i++ {
		assert.GreaterOrEqual(t, selected[i-1].Score, selected[i].Score)
	}
	assert.Contains(t, []string{"B", "D"}, selected[0].Record.Get("Key"))
}

func TestRun_CustomThresholdWins(t *testing.T) {
	custom := 2.0
	res, err := New(embedding.NewHashEmbedder(64)).Run(context.Background(),
		Request{Library: testLibrary(), Reference: reference, Method: selection.PolicyMedian, CustomThreshold: &custom})
	require.NoError(t, err)
	assert.Equal(t, selection.PolicyCustom, res.Method)
	assert.Equal(t, 2.0, res.Threshold)
	assert.Zero(t, res.SelectedCount())
	assert.Empty(t, res.SelectedPapers())
}

func TestRun_DefaultMethod(t *testing.T) {
	res, err := New(embedding.NewHashEmbedder(64)).Run(context.Background(),
		Request{Library: testLibrary(), Reference: reference})
	require.NoError(t, err)
	assert.Equal(t, selection.PolicyMean2Std, res.Method)
}

func TestRun_FromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,Summary\nGraph networks,Molecules\nPoetry,Love\n"), 0600))

	res, err := New(embedding.NewHashEmbedder(64)).Run(context.Background(),
		Request{LibraryPath: path, Reference: reference, Method: selection.PolicyPercentile75})
	require.NoError(t, err)
	assert.Equal(t, library.Columns{Title: "title", Abstract: "Summary"}, res.Columns)
	assert.Equal(t, "lib.csv", res.Library.Filename)
}

func TestRun_Errors(t *testing.T) {
	p := New(embedding.NewHashEmbedder(32))
	ctx := context.Background()
	noTitles := &models.Library{Columns: []string{"Title", "Abstract"}, Records: []models.Record{{"Title": " ", "Abstract": "x"}}}
	noAbstract := &models.Library{Columns: []string{"Title"}, Records: []models.Record{{"Title": "x"}}}

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"empty reference", Request{Library: testLibrary(), Reference: "  "}, library.ErrEmptyReference},
		{"unknown method", Request{Library: testLibrary(), Reference: reference, Method: "top_k"}, selection.ErrUnknownPolicy},
		{"custom without value", Request{Library: testLibrary(), Reference: reference, Method: selection.PolicyCustom}, selection.ErrMissingArgument},
		{"empty library", Request{Library: &models.Library{Columns: []string{"Title", "Abstract"}}, Reference: reference}, library.ErrEmptyLibrary},
		{"no titles", Request{Library: noTitles, Reference: reference}, library.ErrNoTitles},
		{"missing column", Request{Library: noAbstract, Reference: reference}, library.ErrColumnNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(embedding.NewHashEmbedder(32)).Run(ctx, Request{Library: testLibrary(), Reference: reference})
	assert.True(t, errors.Is(err, context.Canceled), "err = %v", err)
}

func TestRun_ProgressAndLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var calls int
	p := New(embedding.NewHashEmbedder(32),
		WithLogger(zap.New(core)),
		WithBatchSize(2),
		WithProgress(func(done, total int) { calls++ }))

	_, err := p.Run(context.Background(), Request{Library: testLibrary(), Reference: reference})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, logs.FilterMessage("papers missing abstracts").Len())
	assert.Equal(t, 1, logs.FilterMessage("selection complete").Len())
}

func TestWithColumns(t *testing.T) {
	lib := &models.Library{
		Columns: []string{"Name", "Body"},
		Records: []models.Record{{"Name": "Graph networks", "Body": "molecules"}, {"Name": "Poetry", "Body": "love"}},
	}
	res, err := New(embedding.NewHashEmbedder(32), WithColumns([]string{"Name"}, []string{"Body"}), WithSeparator(". ")).
		Run(context.Background(), Request{Library: lib, Reference: reference, Method: selection.PolicyMedian})
	require.NoError(t, err)
	assert.Equal(t, library.Columns{Title: "Name", Abstract: "Body"}, res.Columns)
}

package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/haierkeys/memory-server/internal/dao"
	"github.com/haierkeys/memory-server/internal/domain"
	"github.com/haierkeys/memory-server/internal/dto"
	"github.com/haierkeys/memory-server/pkg/code"
	apperrors "github.com/haierkeys/memory-server/pkg/errors"
	"github.com/haierkeys/memory-server/pkg/metrics"
	"github.com/haierkeys/memory-server/pkg/validator"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, cfg *ServiceConfig) (MemoryService, domain.MemoryRepository, *metrics.Metrics) {
	t.Helper()

	db, err := dao.NewDBEngineWithConfig(dao.DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "memory.db"),
	}, nil)
	require.NoError(t, err)

	d, err := dao.New(db, context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = d.WriteQueue().Shutdown(context.Background())
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	v, err := validator.NewCustomValidator()
	require.NoError(t, err)

	m := metrics.New(nil)
	repo := dao.NewMemoryRepository(d)
	return NewMemoryService(repo, v, cfg, nil, m), repo, m
}

func strPtr(s string) *string { return &s }

func TestCreateTrimsAndStores(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	ctx := context.Background()

	got, err := svc.Create(ctx, &dto.MemoryCreateRequest{
		Content:  "  use tabs  ",
		Tags:     []string{" style ", "go"},
		Keywords: []string{"indent"},
		Summary:  " short ",
	})
	require.NoError(t, err)
	assert.Equal(t, "use tabs", got.Content)
	assert.Equal(t, []string{"style", "go"}, got.Tags)
	assert.Equal(t, "short", got.Summary)
	assert.Nil(t, got.Metadata)

	stored, err := repo.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, "use tabs", stored.Content)
}

func TestCreateRejectsBlankContent(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\t\n"} {
		_, err := svc.Create(ctx, &dto.MemoryCreateRequest{Content: content})
		require.Error(t, err, "%q", content)
		assert.True(t, apperrors.Is(err, code.ErrorValidation))
		assert.Equal(t, "content", apperrors.GetAppError(err).Details["field"])
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateRejectsBlankTag(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.Create(context.Background(), &dto.MemoryCreateRequest{Content: "x", Tags: []string{"ok", " "}})
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Kind())
	assert.Equal(t, "tags[1]", appErr.Details["field"])
}

func TestGetValidatesAndMapsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, 0)
	assert.True(t, apperrors.Is(err, code.ErrorValidation))

	_, err = svc.Get(ctx, 12345)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, code.ErrorMemoryNotFound))
	assert.Equal(t, int64(12345), apperrors.GetAppError(err).Details["entry_id"])
}

func TestUpdatePartial(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, &dto.MemoryCreateRequest{Content: "body", Tags: []string{"t"}, Keywords: []string{"k"}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, &dto.MemoryUpdateRequest{ID: created.ID, Summary: strPtr(" new ")})
	require.NoError(t, err)
	assert.Equal(t, "body", updated.Content)
	assert.Equal(t, []string{"t"}, updated.Tags)
	assert.Equal(t, []string{"k"}, updated.Keywords)
	assert.Equal(t, "new", updated.Summary)
	assert.True(t, updated.UpdatedAt.Std().After(created.UpdatedAt.Std()))

	emptyTags := []string{}
	cleared, err := svc.Update(ctx, &dto.MemoryUpdateRequest{ID: created.ID, Tags: &emptyTags})
	require.NoError(t, err)
	assert.Equal(t, []string{}, cleared.Tags)
}

func TestUpdateValidation(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, &dto.MemoryCreateRequest{Content: "body"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, &dto.MemoryUpdateRequest{ID: created.ID, Content: strPtr("  ")})
	assert.True(t, apperrors.Is(err, code.ErrorValidation))

	_, err = svc.Update(ctx, &dto.MemoryUpdateRequest{ID: 0, Content: strPtr("x")})
	require.Error(t, err)
	assert.Equal(t, "entry_id", apperrors.GetAppError(err).Details["field"])

	_, err = svc.Update(ctx, &dto.MemoryUpdateRequest{ID: created.ID + 100, Content: strPtr("x")})
	assert.True(t, apperrors.Is(err, code.ErrorMemoryNotFound))
}

func TestDeleteTwice(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, &dto.MemoryCreateRequest{Content: "bye"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSearchAndListLimits(t *testing.T) {
	cfg := &ServiceConfig{Memory: MemoryServiceConfig{DefaultSearchLimit: 2, DefaultListLimit: 3, MaxResults: 4}}
	svc, _, _ := newTestService(t, cfg)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := svc.Create(ctx, &dto.MemoryCreateRequest{Content: "note", Tags: []string{"a"}})
		require.NoError(t, err)
	}

	res, err := svc.Search(ctx, &dto.MemorySearchRequest{Query: "note"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Limit)
	assert.Len(t, res.Entries, 2)

	res, err = svc.Search(ctx, &dto.MemorySearchRequest{Query: "note", Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Limit)
	assert.Len(t, res.Entries, 4)
	assert.Equal(t, 4, res.TotalCount)

	list, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Limit)
	require.Len(t, list.Entries, 3)
	require.NotNil(t, list.Entries[0].Metadata)
	assert.Equal(t, 1, list.Entries[0].Metadata.TagCount)
	assert.Equal(t, 4, list.Entries[0].Metadata.ContentLength)
	assert.False(t, list.Entries[0].Metadata.HasSummary)

	list, err = svc.List(ctx, &dto.MemoryListRequest{Tags: []string{"missing"}, Limit: -1})
	require.NoError(t, err)
	assert.Empty(t, list.Entries)
	assert.NotNil(t, list.Entries)
}

func TestSearchSemantics(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	e1, err := svc.Create(ctx, &dto.MemoryCreateRequest{Content: "PEP8 rules", Tags: []string{"rule"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &dto.MemoryCreateRequest{Content: "unrelated", Tags: []string{"other"}})
	require.NoError(t, err)

	res, err := svc.Search(ctx, &dto.MemorySearchRequest{Query: "pep8"})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, e1.ID, res.Entries[0].ID)

	res, err = svc.Search(ctx, &dto.MemorySearchRequest{Tags: []string{" rule ", ""}})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, e1.ID, res.Entries[0].ID)

	res, err = svc.Search(ctx, &dto.MemorySearchRequest{Query: "PEP8", Tags: []string{"other"}})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}

func TestListRulesAndTagContains(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	r1, err := svc.Create(ctx, &dto.MemoryCreateRequest{Content: "naming", Tags: []string{"方針"}})
	require.NoError(t, err)
	r2, err := svc.Create(ctx, &dto.MemoryCreateRequest{Content: "lint", Tags: []string{"rules", "project-x"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &dto.MemoryCreateRequest{Content: "misc", Tags: []string{"Rule"}})
	require.NoError(t, err)

	rules, err := svc.ListRules(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rules.Entries, 2)
	assert.Equal(t, r2.ID, rules.Entries[0].ID)
	assert.Equal(t, r1.ID, rules.Entries[1].ID)

	byTag, err := svc.ListByTagContains(ctx, &dto.MemoryTagRequest{Tag: "project"})
	require.NoError(t, err)
	require.Len(t, byTag.Entries, 1)
	assert.Equal(t, r2.ID, byTag.Entries[0].ID)

	_, err = svc.ListByTagContains(ctx, &dto.MemoryTagRequest{Tag: " "})
	assert.True(t, apperrors.Is(err, code.ErrorValidation))
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &dto.MemoryCreateRequest{Content: "one"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.DatabaseOK)
	assert.Equal(t, int64(1), stats.Entries)
}

type failingRepo struct {
	domain.MemoryRepository
}

func (failingRepo) Create(context.Context, *domain.Memory) (*domain.Memory, error) {
	return nil, errors.New("disk I/O error: /var/data/memory.db")
}

func TestStorageErrorIsGeneric(t *testing.T) {
	v, err := validator.NewCustomValidator()
	require.NoError(t, err)
	m := metrics.New(nil)
	svc := NewMemoryService(failingRepo{}, v, nil, nil, m)

	_, err = svc.Create(context.Background(), &dto.MemoryCreateRequest{Content: "x"})
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "DATABASE_ERROR", appErr.Kind())
	assert.NotContains(t, appErr.Message, "/var/data")
	assert.Equal(t, "create", appErr.Details["operation"])

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Operations.WithLabelValues("create", "DATABASE_ERROR")))
}

func TestNormalizeLimit(t *testing.T) {
	c := MemoryServiceConfig{DefaultSearchLimit: 10, DefaultListLimit: 50, MaxResults: 100}
	assert.Equal(t, 10, c.normalizeLimit(0, c.DefaultSearchLimit))
	assert.Equal(t, 10, c.normalizeLimit(-5, c.DefaultSearchLimit))
	assert.Equal(t, 7, c.normalizeLimit(7, c.DefaultSearchLimit))
	assert.Equal(t, 100, c.normalizeLimit(500, c.DefaultListLimit))
	assert.Equal(t, 20, MemoryServiceConfig{DefaultListLimit: 50, MaxResults: 20}.normalizeLimit(0, 50))
}

package store_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tourhubapp/tourhub-server/internal/store"
)

type TestEntity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "entity-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	})

	return s
}

func TestEntity_Create_Success(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{
		ID:    "1",
		Name:  "John Doe",
		Email: "john@example.com",
	}

	err := entity.Create(context.Background(), "1", testData)
	require.NoError(t, err)

	retrieved, err := entity.Get(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, testData.ID, retrieved.ID)
	require.Equal(t, testData.Name, retrieved.Name)
	require.Equal(t, testData.Email, retrieved.Email)
}

func TestEntity_Create_AlreadyExists(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{
		ID:    "1",
		Name:  "John Doe",
		Email: "john@example.com",
	}

	err := entity.Create(context.Background(), "1", testData)
	require.NoError(t, err)

	err = entity.Create(context.Background(), "1", testData)
	require.Error(t, err)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_Get_NotFound(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:")

	retrieved, err := entity.Get(context.Background(), "nonexistent")
	require.Error(t, err)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Nil(t, retrieved)
}

func TestEntity_Update_Success(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{
		ID:    "1",
		Name:  "John Doe",
		Email: "john@example.com",
	}

	err := entity.Create(context.Background(), "1", testData)
	require.NoError(t, err)

	updatedData := &TestEntity{
		ID:    "1",
		Name:  "Jane Doe",
		Email: "jane@example.com",
	}

	err = entity.Update(context.Background(), "1", updatedData)
	require.NoError(t, err)

	retrieved, err := entity.Get(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, updatedData.Name, retrieved.Name)
	require.Equal(t, updatedData.Email, retrieved.Email)
}

func TestEntity_Update_NotFound(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{
		ID:    "1",
		Name:  "John Doe",
		Email: "john@example.com",
	}

	err := entity.Update(context.Background(), "nonexistent", testData)
	require.Error(t, err)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Delete_Success(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{
		ID:    "1",
		Name:  "John Doe",
		Email: "john@example.com",
	}

	err := entity.Create(context.Background(), "1", testData)
	require.NoError(t, err)

	err = entity.Delete(context.Background(), "1")
	require.NoError(t, err)

	retrieved, err := entity.Get(context.Background(), "1")
	require.Error(t, err)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Nil(t, retrieved)
}

func TestEntity_Delete_NotFound(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:")

	// Deleting a record that was never created is a distinct failure,
	// so handlers can answer 404 instead of pretending success.
	err := entity.Delete(context.Background(), "nonexistent")
	require.Error(t, err)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_ContextCancellation(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{
		ID:    "1",
		Name:  "John Doe",
		Email: "john@example.com",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := entity.Create(ctx, "1", testData)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)

	_, err = entity.Get(ctx, "1")
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)

	err = entity.Update(ctx, "1", testData)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)

	err = entity.Delete(ctx, "1")
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEntity_UniqueIndex(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:").
		WithUniqueIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})

	ctx := context.Background()

	testEntity := &TestEntity{
		ID:    "test_123",
		Name:  "Test",
		Email: "test@example.com",
	}

	err := entity.Create(ctx, "test_123", testEntity)
	require.NoError(t, err)

	retrieved, err := entity.GetByIndex(ctx, "email", "test@example.com")
	require.NoError(t, err)
	require.Equal(t, testEntity.ID, retrieved.ID)
}

func TestEntity_GetByIndex_NotFound(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:").
		WithUniqueIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})

	_, err := entity.GetByIndex(context.Background(), "email", "nonexistent@example.com")
	require.Error(t, err)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_UniqueIndexConflict(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:").
		WithUniqueIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})

	ctx := context.Background()

	first := &TestEntity{
		ID:    "test_1",
		Name:  "First",
		Email: "same@example.com",
	}

	err := entity.Create(ctx, "test_1", first)
	require.NoError(t, err)

	second := &TestEntity{
		ID:    "test_2",
		Name:  "Second",
		Email: "same@example.com",
	}

	err = entity.Create(ctx, "test_2", second)
	require.Error(t, err)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.Contains(t, err.Error(), "email")
}

func TestEntity_UniqueIndexTransform(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:").
		WithUniqueIndexTransform("email",
			func(e *TestEntity) []string {
				return []string{e.Email}
			},
			func(v string) string {
				return "lower:" + v
			})

	ctx := context.Background()

	testEntity := &TestEntity{
		ID:    "test_1",
		Name:  "Test",
		Email: "lower:someone@example.com",
	}

	err := entity.Create(ctx, "test_1", testEntity)
	require.NoError(t, err)

	// Lookup value runs through the transform before the index read.
	retrieved, err := entity.GetByIndex(ctx, "email", "someone@example.com")
	require.NoError(t, err)
	require.Equal(t, testEntity.ID, retrieved.ID)
}

func TestEntity_LookupIndex(t *testing.T) {
	s := setupTestStore(t)

	type review struct {
		ID     string `json:"id"`
		TourID string `json:"tour_id"`
		Rating int    `json:"rating"`
	}

	entity := store.NewEntity[review](s, "review:").
		WithLookupIndex("tour", func(r *review) []string {
			return []string{r.TourID}
		})

	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		r := &review{
			ID:     fmt.Sprintf("rev_%d", i),
			TourID: "tour_a",
			Rating: i,
		}
		require.NoError(t, entity.Create(ctx, r.ID, r))
	}
	other := &review{ID: "rev_other", TourID: "tour_b", Rating: 5}
	require.NoError(t, entity.Create(ctx, other.ID, other))

	matches, err := entity.ListByIndex(ctx, "tour", "tour_a")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for _, m := range matches {
		require.Equal(t, "tour_a", m.TourID)
	}

	// Lookup entries follow updates.
	moved := &review{ID: "rev_1", TourID: "tour_b", Rating: 1}
	require.NoError(t, entity.Update(ctx, "rev_1", moved))

	matches, err = entity.ListByIndex(ctx, "tour", "tour_a")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	matches, err = entity.ListByIndex(ctx, "tour", "tour_b")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// And deletions.
	require.NoError(t, entity.Delete(ctx, "rev_other"))

	matches, err = entity.ListByIndex(ctx, "tour", "tour_b")
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestEntity_List(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:").
		WithUniqueIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		testEntity := &TestEntity{
			ID:    fmt.Sprintf("test_%d", i),
			Name:  fmt.Sprintf("Test %d", i),
			Email: fmt.Sprintf("test%d@example.com", i),
		}
		err := entity.Create(ctx, testEntity.ID, testEntity)
		require.NoError(t, err)
	}

	// Index keys must not leak into the listing.
	var count int
	for retrieved, err := range entity.List(ctx) {
		require.NoError(t, err)
		require.NotEmpty(t, retrieved.ID)
		count++
	}

	require.Equal(t, 5, count)
}

func TestEntity_List_EarlyTermination(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:")
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		testEntity := &TestEntity{
			ID:    fmt.Sprintf("test_%d", i),
			Name:  fmt.Sprintf("Test %d", i),
			Email: fmt.Sprintf("test%d@example.com", i),
		}
		err := entity.Create(ctx, testEntity.ID, testEntity)
		require.NoError(t, err)
	}

	var count int
	for retrieved, err := range entity.List(ctx) {
		require.NoError(t, err)
		require.NotEmpty(t, retrieved.ID)
		count++
		if count == 3 {
			break
		}
	}

	require.Equal(t, 3, count)
}

func TestEntity_All(t *testing.T) {
	s := setupTestStore(t)

	entity := store.NewEntity[TestEntity](s, "test:")
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		testEntity := &TestEntity{
			ID:    fmt.Sprintf("test_%d", i),
			Name:  fmt.Sprintf("Test %d", i),
			Email: fmt.Sprintf("test%d@example.com", i),
		}
		require.NoError(t, entity.Create(ctx, testEntity.ID, testEntity))
	}

	all, err := entity.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
}

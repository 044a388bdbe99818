package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickshop/quickshop-backend/internal/app/model"
)

func ptr[T any](v T) *T {
	return &v
}

func TestProjectionStore_Project_NoDelta(t *testing.T) {
	store := NewProjectionStore()
	base := model.Product{ID: 1, Name: "Keyboard", Price: 50, Stock: 10}

	projected := store.Project(base)
	require.NotNil(t, projected)
	assert.Equal(t, base, *projected)
}

func TestProjectionStore_Project_AppliesPatch(t *testing.T) {
	store := NewProjectionStore()
	store.RecordUpdate(1, ProductPatch{Stock: ptr(3), Price: ptr(45.0)})

	projected := store.Project(model.Product{ID: 1, Name: "Keyboard", Price: 50, Stock: 10})
	require.NotNil(t, projected)
	assert.Equal(t, 3, projected.Stock)
	assert.Equal(t, 45.0, projected.Price)
	// Untouched fields keep the base value
	assert.Equal(t, "Keyboard", projected.Name)
}

func TestProjectionStore_Project_LastWriteWins(t *testing.T) {
	store := NewProjectionStore()
	store.RecordUpdate(1, ProductPatch{Stock: ptr(5)})
	store.RecordUpdate(1, ProductPatch{Stock: ptr(2)})

	projected := store.Project(model.Product{ID: 1, Stock: 10})
	require.NotNil(t, projected)
	assert.Equal(t, 2, projected.Stock)
}

func TestProjectionStore_Project_DeletedReturnsNil(t *testing.T) {
	store := NewProjectionStore()
	store.RecordDelete(1)

	assert.Nil(t, store.Project(model.Product{ID: 1, Name: "Gone"}))
}

func TestProjectionStore_Delete_OverridesEarlierPatch(t *testing.T) {
	store := NewProjectionStore()
	store.RecordUpdate(1, ProductPatch{Stock: ptr(4)})
	store.RecordDelete(1)

	assert.Nil(t, store.Project(model.Product{ID: 1}))
}

func TestProjectionStore_OverlayList_PrependsInserts(t *testing.T) {
	store := NewProjectionStore()
	store.RecordInsert(model.Product{ID: 3, Name: "New Mouse"})

	fetched := []model.Product{
		{ID: 1, Name: "Keyboard"},
		{ID: 2, Name: "Monitor"},
	}

	result := store.OverlayList(fetched)
	require.Len(t, result, 3)
	assert.Equal(t, uint(3), result[0].ID)
	assert.Equal(t, uint(1), result[1].ID)
	assert.Equal(t, uint(2), result[2].ID)
}

func TestProjectionStore_OverlayList_DeduplicatesAgainstFetch(t *testing.T) {
	store := NewProjectionStore()
	store.RecordInsert(model.Product{ID: 2, Name: "Monitor"})

	// A later fetch already contains the inserted product
	fetched := []model.Product{
		{ID: 1, Name: "Keyboard"},
		{ID: 2, Name: "Monitor"},
	}

	result := store.OverlayList(fetched)
	assert.Len(t, result, 2)
}

func TestProjectionStore_OverlayList_DropsDeleted(t *testing.T) {
	store := NewProjectionStore()
	store.RecordDelete(1)

	result := store.OverlayList([]model.Product{
		{ID: 1, Name: "Keyboard"},
		{ID: 2, Name: "Monitor"},
	})
	require.Len(t, result, 1)
	assert.Equal(t, uint(2), result[0].ID)
}

func TestProjectionStore_OverlayList_ProjectsInserts(t *testing.T) {
	store := NewProjectionStore()
	store.RecordInsert(model.Product{ID: 5, Name: "Lamp", Stock: 7})
	store.RecordUpdate(5, ProductPatch{Stock: ptr(1)})

	result := store.OverlayList(nil)
	require.Len(t, result, 1)
	assert.Equal(t, 1, result[0].Stock)
}

func TestProjectionStore_RecordInsert_ReplacesSameID(t *testing.T) {
	store := NewProjectionStore()
	store.RecordInsert(model.Product{ID: 5, Name: "Lamp"})
	store.RecordInsert(model.Product{ID: 5, Name: "Desk Lamp"})

	result := store.OverlayList(nil)
	require.Len(t, result, 1)
	assert.Equal(t, "Desk Lamp", result[0].Name)
}

func TestProjectionStore_Reset(t *testing.T) {
	store := NewProjectionStore()
	store.RecordInsert(model.Product{ID: 1})
	store.RecordUpdate(2, ProductPatch{Stock: ptr(0)})

	store.Reset()

	updates, inserts := store.Len()
	assert.Zero(t, updates)
	assert.Zero(t, inserts)
}

func TestProductPatch_ApplyTo_AllFields(t *testing.T) {
	product := model.Product{ID: 1, Name: "Old", Slug: "old", Price: 10, Stock: 1, CategoryID: 1}

	patch := ProductPatch{
		Name:        ptr("New"),
		Slug:        ptr("new"),
		Description: ptr("desc"),
		Price:       ptr(20.0),
		Stock:       ptr(9),
		ImageURL:    ptr("https://cdn.example.com/new.png"),
		CategoryID:  ptr(uint(2)),
	}
	patch.ApplyTo(&product)

	assert.Equal(t, "New", product.Name)
	assert.Equal(t, "new", product.Slug)
	assert.Equal(t, "desc", product.Description)
	assert.Equal(t, 20.0, product.Price)
	assert.Equal(t, 9, product.Stock)
	assert.Equal(t, "https://cdn.example.com/new.png", product.ImageURL)
	assert.Equal(t, uint(2), product.CategoryID)
}

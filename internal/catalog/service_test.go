package catalog_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/catalog"
)

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) ListProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]catalog.Product), args.Int(1), args.Error(2)
}

func (m *MockCatalogRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetProductBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogRepository) CreateProduct(ctx context.Context, p *catalog.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockCatalogRepository) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockCatalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogRepository) ListCategories(ctx context.Context, activeOnly bool) ([]catalog.Category, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCatalogRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCatalogRepository) CreateCategory(ctx context.Context, c *catalog.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCatalogRepository) UpdateCategory(ctx context.Context, c *catalog.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCatalogRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "banarasi-silk-saree", catalog.Slugify("  Banarasi Silk Saree "))
	assert.Equal(t, "kurta-set-2-pc", catalog.Slugify("Kurta Set (2 pc)"))
	assert.Equal(t, "", catalog.Slugify("!!!"))
}

func TestCatalogService_ListProducts_ClampsPaging(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		offset    int
		wantLimit int
		wantOff   int
	}{
		{name: "default", limit: 0, offset: -5, wantLimit: catalog.DefaultPageSize, wantOff: 0},
		{name: "capped", limit: 1000, offset: 40, wantLimit: catalog.MaxPageSize, wantOff: 40},
		{name: "as_is", limit: 12, offset: 12, wantLimit: 12, wantOff: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockCatalogRepository)
			svc := catalog.NewService(mockRepo)

			mockRepo.On("ListProducts", mock.Anything, mock.MatchedBy(func(f catalog.ProductFilter) bool {
				return f.Limit == tt.wantLimit && f.Offset == tt.wantOff
			})).Return([]catalog.Product{{Name: "Saree"}}, 1, nil).Once()

			page, err := svc.ListProducts(context.Background(), catalog.ProductFilter{Limit: tt.limit, Offset: tt.offset})
			require.NoError(t, err)
			require.Equal(t, 1, page.Total)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestCatalogService_GetProductBySlug_InactiveIsNotFound(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	svc := catalog.NewService(mockRepo)

	mockRepo.On("GetProductBySlug", mock.Anything, "old-lehenga").
		Return(&catalog.Product{Slug: "old-lehenga", IsActive: false}, nil).Once()

	p, err := svc.GetProductBySlug(context.Background(), "old-lehenga")
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
	require.Nil(t, p)
}

func TestCatalogService_CreateProduct(t *testing.T) {
	t.Run("normalizes_and_creates", func(t *testing.T) {
		mockRepo := new(MockCatalogRepository)
		svc := catalog.NewService(mockRepo)

		mockRepo.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *catalog.Product) bool {
			return p.Slug == "chanderi-kurta" && p.SKU == "KUR-001" &&
				p.Availability == catalog.AvailabilityInStock && p.Sizes != nil
		})).Return(nil).Once()

		p, err := svc.CreateProduct(context.Background(), &catalog.Product{
			Name:  "Chanderi Kurta",
			SKU:   " kur-001 ",
			Price: decimal.RequireFromString("1499.00"),
		})
		require.NoError(t, err)
		require.Equal(t, "chanderi-kurta", p.Slug)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate_slug", func(t *testing.T) {
		mockRepo := new(MockCatalogRepository)
		svc := catalog.NewService(mockRepo)

		mockRepo.On("CreateProduct", mock.Anything, mock.Anything).Return(catalog.ErrSlugExists).Once()

		_, err := svc.CreateProduct(context.Background(), &catalog.Product{
			Name: "Chanderi Kurta", SKU: "KUR-001", Price: decimal.NewFromInt(10),
		})
		require.ErrorIs(t, err, catalog.ErrSlugExists)
	})

	t.Run("invalid", func(t *testing.T) {
		cases := []*catalog.Product{
			{SKU: "A", Price: decimal.NewFromInt(1)},
			{Name: "No sku", Price: decimal.NewFromInt(1)},
			{Name: "Neg", SKU: "A", Price: decimal.NewFromInt(-1)},
			{Name: "Stock", SKU: "A", Price: decimal.NewFromInt(1), StockQuantity: -3},
			{Name: "Avail", SKU: "A", Price: decimal.NewFromInt(1), Availability: "sold"},
			{Name: "Compare", SKU: "A", Price: decimal.NewFromInt(10), ComparePrice: decimal.NewNullDecimal(decimal.NewFromInt(5))},
		}
		for _, p := range cases {
			mockRepo := new(MockCatalogRepository)
			svc := catalog.NewService(mockRepo)

			_, err := svc.CreateProduct(context.Background(), p)
			require.ErrorIs(t, err, catalog.ErrInvalidProduct, "product %q", p.Name)
			mockRepo.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
		}
	})
}

func TestCatalogService_DeleteCategory_InUse(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	svc := catalog.NewService(mockRepo)
	id := uuid.Must(uuid.NewV4())

	mockRepo.On("DeleteCategory", mock.Anything, id).Return(catalog.ErrCategoryInUse).Once()

	err := svc.DeleteCategory(context.Background(), id)
	require.ErrorIs(t, err, catalog.ErrCategoryInUse)
}

func TestProduct_Helpers(t *testing.T) {
	p := catalog.Product{IsActive: true, Availability: catalog.AvailabilityPreOrder}
	assert.True(t, p.Purchasable())
	assert.False(t, p.TracksStock())
	assert.Equal(t, "", p.PrimaryImage())

	p.Availability = catalog.AvailabilityDiscontinued
	assert.False(t, p.Purchasable())

	p.Images = []string{"a.jpg", "b.jpg"}
	p.StockQuantity = 4
	assert.Equal(t, "a.jpg", p.PrimaryImage())
	assert.True(t, p.TracksStock())
}

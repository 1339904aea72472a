package stores

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
)

// CreateInput is the payload for registering a new store.
type CreateInput struct {
	Name                string `json:"name" validate:"required,min=2,max=100"`
	ShopifyDomain       string `json:"shopify_domain" validate:"omitempty,hostname"`
	FacebookAdAccountID string `json:"facebook_ad_account_id" validate:"omitempty,numeric"`
	GoogleCustomerID    string `json:"google_customer_id" validate:"omitempty"`
}

// UpdateInput is the payload for changing a store's settings. Credentials are
// not updatable here; they go through the OAuth flow.
type UpdateInput struct {
	Name                string `json:"name" validate:"omitempty,min=2,max=100"`
	ShopifyDomain       string `json:"shopify_domain" validate:"omitempty,hostname"`
	FacebookAdAccountID string `json:"facebook_ad_account_id" validate:"omitempty,numeric"`
	GoogleCustomerID    string `json:"google_customer_id" validate:"omitempty"`
}

// Service manages store records.
type Service struct {
	repo     storage.StoreRepository
	validate *validator.Validate
}

// NewService creates a store service
func NewService(repo storage.StoreRepository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
	}
}

// List returns all stores
func (s *Service) List(ctx context.Context) ([]models.Store, error) {
	return s.repo.List(ctx)
}

// Get returns one store by id
func (s *Service) Get(ctx context.Context, id int) (*models.Store, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and registers a new store
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Store, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid store: %w", err)
	}

	return s.repo.Create(ctx, &models.Store{
		Name:                input.Name,
		ShopifyDomain:       input.ShopifyDomain,
		FacebookAdAccountID: input.FacebookAdAccountID,
		GoogleCustomerID:    input.GoogleCustomerID,
	})
}

// Update validates and applies changes to an existing store
func (s *Service) Update(ctx context.Context, id int, input UpdateInput) (*models.Store, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid store: %w", err)
	}

	store, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		store.Name = input.Name
	}
	if input.ShopifyDomain != "" {
		store.ShopifyDomain = input.ShopifyDomain
	}
	if input.FacebookAdAccountID != "" {
		store.FacebookAdAccountID = input.FacebookAdAccountID
	}
	if input.GoogleCustomerID != "" {
		store.GoogleCustomerID = input.GoogleCustomerID
	}

	return s.repo.Update(ctx, store)
}

// Delete removes a store and all of its metrics
func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

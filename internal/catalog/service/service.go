package service

import (
	"context"
	"errors"
	"sync"

	catalogerrors "housecall/internal/catalog/errors"
	"housecall/internal/catalog/repository"
	"housecall/internal/catalog/validator"
	"housecall/pkg/config"
	apperrors "housecall/pkg/errors"
	"housecall/pkg/model"
	"housecall/pkg/sanitizer"
)

type CatalogService interface {
	Create(ctx context.Context, svc *model.Service) (*model.Service, error)
	GetByID(ctx context.Context, id string) (*model.Service, error)
	List(ctx context.Context, filter repository.ListFilter, limit int, offset int64) ([]*model.Service, int64, error)
	Update(ctx context.Context, id string, updates *model.ServiceUpdate) (*model.Service, error)
	Delete(ctx context.Context, id string) error
}

type catalogService struct {
	repo      repository.ServiceRepository
	validator *validator.ServiceValidator
	cfg       *config.Config
}

func NewCatalogService(repo repository.ServiceRepository, validator *validator.ServiceValidator, cfg *config.Config) CatalogService {
	return &catalogService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *catalogService) Create(ctx context.Context, svc *model.Service) (*model.Service, error) {
	s.sanitize(svc)

	if svc.ContactPhone == "" {
		return nil, apperrors.InvalidField("contact_phone", "contact_phone must be a valid phone number")
	}
	if err := s.validator.Validate(svc); err != nil {
		return nil, apperrors.Validation("Service validation failed", map[string]any{"errors": err.Error()})
	}

	if err := s.repo.Create(ctx, svc); err != nil {
		if errors.Is(err, catalogerrors.ErrDuplicateName) {
			return nil, apperrors.Conflict("A service with this name already exists in the category")
		}
		s.cfg.Log.Error("Failed to create service", "error", err)
		return nil, apperrors.Internal("Failed to create service", err)
	}

	s.cfg.Log.Info("Service created",
		"id", svc.ID,
		"name", svc.Name,
		"category", svc.Category,
	)
	return svc, nil
}

func (s *catalogService) GetByID(ctx context.Context, id string) (*model.Service, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Service ID cannot be empty")
	}

	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	return svc, nil
}

func (s *catalogService) List(ctx context.Context, filter repository.ListFilter, limit int, offset int64) ([]*model.Service, int64, error) {
	filter.Category = sanitizer.NormalizeCityOrCategory(filter.Category)
	filter.City = sanitizer.NormalizeCityOrCategory(filter.City)
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var services []*model.Service
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
	}()
	go func() {
		defer wg.Done()
		services, errFind = s.repo.FindAll(ctx, filter, limit, offset)
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count services", errCount)
	}
	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve services", errFind)
	}

	return services, count, nil
}

func (s *catalogService) Update(ctx context.Context, id string, updates *model.ServiceUpdate) (*model.Service, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Service ID cannot be empty")
	}

	rawPhone := updates.ContactPhone
	s.sanitizeUpdate(updates)
	if rawPhone != "" && updates.ContactPhone == "" {
		return nil, apperrors.InvalidField("contact_phone", "contact_phone must be a valid phone number")
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, apperrors.Validation("Service validation failed", map[string]any{"errors": err.Error()})
	}

	svc, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Service updated", "id", id)
	return svc, nil
}

func (s *catalogService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Service ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapLookupError(err, id)
	}

	s.cfg.Log.Info("Service deleted", "id", id)
	return nil
}

func (s *catalogService) sanitize(svc *model.Service) {
	svc.Name = sanitizer.NormalizeText(svc.Name)
	svc.Description = sanitizer.NormalizeText(svc.Description)
	svc.Category = sanitizer.NormalizeCityOrCategory(svc.Category)
	svc.Cities = sanitizer.NormalizeSlice(svc.Cities, sanitizer.NormalizeCityOrCategory)
	svc.ContactPhone = sanitizer.NormalizePhone(svc.ContactPhone)
}

func (s *catalogService) sanitizeUpdate(updates *model.ServiceUpdate) {
	updates.Name = sanitizer.NormalizeText(updates.Name)
	updates.Category = sanitizer.NormalizeCityOrCategory(updates.Category)
	if updates.Description != nil {
		desc := sanitizer.NormalizeText(*updates.Description)
		updates.Description = &desc
	}
	if updates.Cities != nil {
		cities := sanitizer.NormalizeSlice(*updates.Cities, sanitizer.NormalizeCityOrCategory)
		updates.Cities = &cities
	}
	if updates.ContactPhone != "" {
		updates.ContactPhone = sanitizer.NormalizePhone(updates.ContactPhone)
	}
}

func (s *catalogService) mapLookupError(err error, id string) error {
	if errors.Is(err, catalogerrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Service", id)
	}
	if errors.Is(err, catalogerrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid service ID format")
	}
	return apperrors.Internal("Failed to access service catalog", err)
}

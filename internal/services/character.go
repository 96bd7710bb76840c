package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/normalization"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type CharacterListInput struct {
	CharacterType string
	Page          int
	PerPage       int
}

type CharacterPage struct {
	Characters []CharacterDTO `json:"characters"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
}

type CharacterInput struct {
	Name              string         `json:"name" binding:"required"`
	NameEN            string         `json:"name_en"`
	Description       string         `json:"description" binding:"required"`
	DescriptionEN     string         `json:"description_en"`
	Background        string         `json:"background"`
	BackgroundEN      string         `json:"background_en"`
	CharacterType     string         `json:"character_type"`
	PersonalityTraits datatypes.JSON `json:"personality_traits"`
	SpecialAbilities  datatypes.JSON `json:"special_abilities"`
	ImageURL          string         `json:"image_url"`
	ShadowPuppetImage string         `json:"shadow_puppet_image"`
	ColorScheme       string         `json:"color_scheme"`
	Origin            string         `json:"origin"`
	HistoricalPeriod  string         `json:"historical_period"`
	IsActive          *bool          `json:"is_active"`
}

type CharacterService interface {
	ListCharacters(ctx context.Context, input CharacterListInput) (*CharacterPage, error)
	GetCharacter(ctx context.Context, characterID uuid.UUID) (*CharacterDTO, error)
	SearchCharacters(ctx context.Context, query string, limit int) ([]CharacterDTO, error)

	// Admin surface.
	CreateCharacter(ctx context.Context, input CharacterInput) (*CharacterDTO, error)
	UpdateCharacter(ctx context.Context, characterID uuid.UUID, input CharacterInput) (*CharacterDTO, error)
	DeleteCharacter(ctx context.Context, characterID uuid.UUID) error
}

type characterService struct {
	db       *gorm.DB
	log      *logger.Logger
	charRepo repos.CharacterRepo
}

func NewCharacterService(db *gorm.DB, log *logger.Logger, charRepo repos.CharacterRepo) CharacterService {
	serviceLog := log.With("service", "CharacterService")
	return &characterService{db: db, log: serviceLog, charRepo: charRepo}
}

func (s *characterService) ListCharacters(ctx context.Context, input CharacterListInput) (*CharacterPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage <= 0 || perPage > 50 {
		perPage = 12
	}

	characters, total, err := s.charRepo.List(ctx, nil, repos.CharacterFilter{
		CharacterType: normalization.ParseInputString(input.CharacterType),
		ActiveOnly:    true,
		Offset:        (page - 1) * perPage,
		Limit:         perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}

	return &CharacterPage{
		Characters: NewCharacterDTOs(characters, requestdata.Language(ctx)),
		Total:      total,
		Page:       page,
		PerPage:    perPage,
	}, nil
}

func (s *characterService) GetCharacter(ctx context.Context, characterID uuid.UUID) (*CharacterDTO, error) {
	characters, err := s.charRepo.GetByIDs(ctx, nil, []uuid.UUID{characterID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch character: %w", err)
	}
	if len(characters) == 0 || !characters[0].IsActive {
		return nil, fmt.Errorf("character %s: %w", characterID, ErrNotFound)
	}

	// Every detail read nudges the popularity signal.
	if err := s.charRepo.IncrementPopularity(ctx, nil, characterID, 1); err != nil {
		s.log.Warn("failed to bump character popularity", "character_id", characterID, "error", err)
	}

	dto := NewCharacterDTO(characters[0], requestdata.Language(ctx))
	return &dto, nil
}

func (s *characterService) SearchCharacters(ctx context.Context, query string, limit int) ([]CharacterDTO, error) {
	query = normalization.TrimInputString(query)
	if query == "" {
		return []CharacterDTO{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	characters, err := s.charRepo.Search(ctx, nil, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search characters: %w", err)
	}
	return NewCharacterDTOs(characters, requestdata.Language(ctx)), nil
}

func (s *characterService) CreateCharacter(ctx context.Context, input CharacterInput) (*CharacterDTO, error) {
	if normalization.TrimInputString(input.Name) == "" {
		return nil, fmt.Errorf("name is required: %w", ErrValidation)
	}
	if normalization.TrimInputString(input.Description) == "" {
		return nil, fmt.Errorf("description is required: %w", ErrValidation)
	}

	character := &types.Character{
		ID:       uuid.New(),
		IsActive: true,
	}
	applyCharacterInput(character, input)

	if _, err := s.charRepo.Create(ctx, nil, []*types.Character{character}); err != nil {
		return nil, fmt.Errorf("failed to create character: %w", err)
	}
	s.log.Info("character created", "character_id", character.ID, "name", character.Name)

	dto := NewCharacterDTO(character, requestdata.Language(ctx))
	return &dto, nil
}

func (s *characterService) UpdateCharacter(ctx context.Context, characterID uuid.UUID, input CharacterInput) (*CharacterDTO, error) {
	characters, err := s.charRepo.GetByIDs(ctx, nil, []uuid.UUID{characterID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch character: %w", err)
	}
	if len(characters) == 0 {
		return nil, fmt.Errorf("character %s: %w", characterID, ErrNotFound)
	}
	character := characters[0]
	applyCharacterInput(character, input)

	if err := s.charRepo.Update(ctx, nil, character); err != nil {
		return nil, fmt.Errorf("failed to update character: %w", err)
	}
	dto := NewCharacterDTO(character, requestdata.Language(ctx))
	return &dto, nil
}

func (s *characterService) DeleteCharacter(ctx context.Context, characterID uuid.UUID) error {
	characters, err := s.charRepo.GetByIDs(ctx, nil, []uuid.UUID{characterID})
	if err != nil {
		return fmt.Errorf("failed to fetch character: %w", err)
	}
	if len(characters) == 0 {
		return fmt.Errorf("character %s: %w", characterID, ErrNotFound)
	}
	if err := s.charRepo.FullDeleteByIDs(ctx, nil, []uuid.UUID{characterID}); err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	s.log.Info("character deleted", "character_id", characterID)
	return nil
}

func applyCharacterInput(character *types.Character, input CharacterInput) {
	character.Name = normalization.TrimInputString(input.Name)
	character.NameEN = normalization.TrimInputString(input.NameEN)
	character.Description = normalization.TrimInputString(input.Description)
	character.DescriptionEN = normalization.TrimInputString(input.DescriptionEN)
	character.Background = input.Background
	character.BackgroundEN = input.BackgroundEN
	character.CharacterType = normalization.ParseInputString(input.CharacterType)
	if input.PersonalityTraits != nil {
		character.PersonalityTraits = input.PersonalityTraits
	}
	if input.SpecialAbilities != nil {
		character.SpecialAbilities = input.SpecialAbilities
	}
	character.ImageURL = input.ImageURL
	character.ShadowPuppetImage = input.ShadowPuppetImage
	character.ColorScheme = input.ColorScheme
	character.Origin = normalization.TrimInputString(input.Origin)
	character.HistoricalPeriod = normalization.TrimInputString(input.HistoricalPeriod)
	if input.IsActive != nil {
		character.IsActive = *input.IsActive
	}
}

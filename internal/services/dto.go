package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/piyingxi/shadowplay-backend/internal/types"
)

// LanguageEN is the only non-default locale; every other value falls back to
// the Chinese source columns.
const LanguageEN = "en_US"

// pick returns the English column when the request language is en_US and the
// translation is present, otherwise the original text.
func pick(language, zh, en string) string {
	if language == LanguageEN && en != "" {
		return en
	}
	return zh
}

type StoryDTO struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	Slug            string         `json:"slug"`
	Description     string         `json:"description"`
	FullContent     string         `json:"full_content,omitempty"`
	Thumbnail       string         `json:"thumbnail"`
	VideoURL        string         `json:"video_url,omitempty"`
	Images          datatypes.JSON `json:"images,omitempty"`
	Category        string         `json:"category"`
	Tags            datatypes.JSON `json:"tags,omitempty"`
	DifficultyLevel int            `json:"difficulty_level"`
	ViewCount       int            `json:"view_count"`
	LikeCount       int            `json:"like_count"`
	ShareCount      int            `json:"share_count"`
	IsFeatured      bool           `json:"is_featured"`
	Duration        int            `json:"duration,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// NewStoryDTO serializes a list view of the story (no full content).
func NewStoryDTO(s *types.Story, language string) StoryDTO {
	return StoryDTO{
		ID:              s.ID,
		Title:           pick(language, s.Title, s.TitleEN),
		Slug:            s.Slug,
		Description:     pick(language, s.Description, s.DescriptionEN),
		Thumbnail:       s.Thumbnail,
		VideoURL:        s.VideoURL,
		Images:          s.Images,
		Category:        s.Category,
		Tags:            s.Tags,
		DifficultyLevel: s.DifficultyLevel,
		ViewCount:       s.ViewCount,
		LikeCount:       s.LikeCount,
		ShareCount:      s.ShareCount,
		IsFeatured:      s.IsFeatured,
		Duration:        s.Duration,
		CreatedAt:       s.CreatedAt,
	}
}

// NewStoryDetailDTO additionally carries the full content.
func NewStoryDetailDTO(s *types.Story, language string) StoryDTO {
	dto := NewStoryDTO(s, language)
	dto.FullContent = pick(language, s.FullContent, s.FullContentEN)
	return dto
}

func NewStoryDTOs(stories []*types.Story, language string) []StoryDTO {
	out := make([]StoryDTO, 0, len(stories))
	for _, s := range stories {
		out = append(out, NewStoryDTO(s, language))
	}
	return out
}

type SceneDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	AudioURL    string    `json:"audio_url,omitempty"`
	Position    int       `json:"position"`
	StartTime   int       `json:"start_time,omitempty"`
	EndTime     int       `json:"end_time,omitempty"`
}

func NewSceneDTOs(scenes []*types.Scene, language string) []SceneDTO {
	out := make([]SceneDTO, 0, len(scenes))
	for _, sc := range scenes {
		out = append(out, SceneDTO{
			ID:          sc.ID,
			Title:       pick(language, sc.Title, sc.TitleEN),
			Description: pick(language, sc.Description, sc.DescriptionEN),
			ImageURL:    sc.ImageURL,
			AudioURL:    sc.AudioURL,
			Position:    sc.Position,
			StartTime:   sc.StartTime,
			EndTime:     sc.EndTime,
		})
	}
	return out
}

type CharacterDTO struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	Background        string         `json:"background,omitempty"`
	CharacterType     string         `json:"character_type"`
	PersonalityTraits datatypes.JSON `json:"personality_traits,omitempty"`
	SpecialAbilities  datatypes.JSON `json:"special_abilities,omitempty"`
	ImageURL          string         `json:"image_url,omitempty"`
	ShadowPuppetImage string         `json:"shadow_puppet_image,omitempty"`
	ColorScheme       string         `json:"color_scheme,omitempty"`
	Origin            string         `json:"origin,omitempty"`
	HistoricalPeriod  string         `json:"historical_period,omitempty"`
	PopularityScore   int            `json:"popularity_score"`
}

func NewCharacterDTO(c *types.Character, language string) CharacterDTO {
	return CharacterDTO{
		ID:                c.ID,
		Name:              pick(language, c.Name, c.NameEN),
		Description:       pick(language, c.Description, c.DescriptionEN),
		Background:        pick(language, c.Background, c.BackgroundEN),
		CharacterType:     c.CharacterType,
		PersonalityTraits: c.PersonalityTraits,
		SpecialAbilities:  c.SpecialAbilities,
		ImageURL:          c.ImageURL,
		ShadowPuppetImage: c.ShadowPuppetImage,
		ColorScheme:       c.ColorScheme,
		Origin:            c.Origin,
		HistoricalPeriod:  c.HistoricalPeriod,
		PopularityScore:   c.PopularityScore,
	}
}

func NewCharacterDTOs(characters []*types.Character, language string) []CharacterDTO {
	out := make([]CharacterDTO, 0, len(characters))
	for _, c := range characters {
		out = append(out, NewCharacterDTO(c, language))
	}
	return out
}

type ModuleDTO struct {
	ID                uuid.UUID      `json:"id"`
	Title             string         `json:"title"`
	Slug              string         `json:"slug"`
	Description       string         `json:"description"`
	Content           string         `json:"content,omitempty"`
	Category          string         `json:"category"`
	DifficultyLevel   int            `json:"difficulty_level"`
	Position          int            `json:"position"`
	VideoURL          string         `json:"video_url,omitempty"`
	Thumbnail         string         `json:"thumbnail,omitempty"`
	Resources         datatypes.JSON `json:"resources,omitempty"`
	Prerequisites     datatypes.JSON `json:"prerequisites,omitempty"`
	EstimatedDuration int            `json:"estimated_duration,omitempty"`
	PointsReward      int            `json:"points_reward"`
	EnrollmentCount   int            `json:"enrollment_count"`
	CompletionCount   int            `json:"completion_count"`
	IsFree            bool           `json:"is_free"`
	CreatedAt         time.Time      `json:"created_at"`
}

func NewModuleDTO(m *types.LearningModule, language string) ModuleDTO {
	return ModuleDTO{
		ID:                m.ID,
		Title:             pick(language, m.Title, m.TitleEN),
		Slug:              m.Slug,
		Description:       pick(language, m.Description, m.DescriptionEN),
		Category:          m.Category,
		DifficultyLevel:   m.DifficultyLevel,
		Position:          m.Position,
		VideoURL:          m.VideoURL,
		Thumbnail:         m.Thumbnail,
		Resources:         m.Resources,
		Prerequisites:     m.Prerequisites,
		EstimatedDuration: m.EstimatedDuration,
		PointsReward:      m.PointsReward,
		EnrollmentCount:   m.EnrollmentCount,
		CompletionCount:   m.CompletionCount,
		IsFree:            m.IsFree,
		CreatedAt:         m.CreatedAt,
	}
}

func NewModuleDetailDTO(m *types.LearningModule, language string) ModuleDTO {
	dto := NewModuleDTO(m, language)
	dto.Content = pick(language, m.Content, m.ContentEN)
	return dto
}

func NewModuleDTOs(modules []*types.LearningModule, language string) []ModuleDTO {
	out := make([]ModuleDTO, 0, len(modules))
	for _, m := range modules {
		out = append(out, NewModuleDTO(m, language))
	}
	return out
}

type UserDTO struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Nickname  string     `json:"nickname,omitempty"`
	Avatar    string     `json:"avatar,omitempty"`
	Bio       string     `json:"bio,omitempty"`
	Location  string     `json:"location,omitempty"`
	IsAdmin   bool       `json:"is_admin"`
	IsActive  bool       `json:"is_active"`
	Language  string     `json:"language"`
	Theme     string     `json:"theme"`
	Points    int        `json:"points"`
	Level     int        `json:"level"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewUserDTO(u *types.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Nickname:  u.Nickname,
		Avatar:    u.Avatar,
		Bio:       u.Bio,
		Location:  u.Location,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
		Language:  u.Language,
		Theme:     u.Theme,
		Points:    u.Points,
		Level:     u.Level,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}

type CommentDTO struct {
	ID         uuid.UUID    `json:"id"`
	Content    string       `json:"content"`
	UserID     uuid.UUID    `json:"user_id"`
	AuthorName string       `json:"author_name"`
	LikeCount  int          `json:"like_count"`
	IsPinned   bool         `json:"is_pinned"`
	CreatedAt  time.Time    `json:"created_at"`
	Replies    []CommentDTO `json:"replies,omitempty"`
}

func NewCommentDTO(c *types.Comment, authorName string) CommentDTO {
	return CommentDTO{
		ID:         c.ID,
		Content:    c.Content,
		UserID:     c.UserID,
		AuthorName: authorName,
		LikeCount:  c.LikeCount,
		IsPinned:   c.IsPinned,
		CreatedAt:  c.CreatedAt,
	}
}

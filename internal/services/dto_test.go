package services

import (
	"testing"

	"github.com/piyingxi/shadowplay-backend/internal/types"
)

func TestPick_LanguageFallback(t *testing.T) {
	if got := pick("zh_CN", "皮影戏", "Shadow Play"); got != "皮影戏" {
		t.Fatalf("expected Chinese source for zh_CN, got %q", got)
	}
	if got := pick(LanguageEN, "皮影戏", "Shadow Play"); got != "Shadow Play" {
		t.Fatalf("expected English column for en_US, got %q", got)
	}
	// Missing translation falls back to the source text.
	if got := pick(LanguageEN, "皮影戏", ""); got != "皮影戏" {
		t.Fatalf("expected fallback to Chinese, got %q", got)
	}
	// Unknown locales read as the default.
	if got := pick("fr_FR", "皮影戏", "Shadow Play"); got != "皮影戏" {
		t.Fatalf("expected Chinese for unknown locale, got %q", got)
	}
}

func TestNewStoryDTO_LocalizesAllTextColumns(t *testing.T) {
	story := &types.Story{
		Title:         "白蛇传",
		TitleEN:       "Legend of the White Snake",
		Description:   "描述",
		DescriptionEN: "",
	}
	dto := NewStoryDTO(story, LanguageEN)
	if dto.Title != "Legend of the White Snake" {
		t.Fatalf("expected English title, got %q", dto.Title)
	}
	if dto.Description != "描述" {
		t.Fatalf("expected fallback description, got %q", dto.Description)
	}
}

func TestNewStoryDetailDTO_IncludesFullContent(t *testing.T) {
	story := &types.Story{Title: "t", Description: "d", FullContent: "full text"}
	list := NewStoryDTO(story, "zh_CN")
	if list.FullContent != "" {
		t.Fatalf("list view must not carry full content")
	}
	detail := NewStoryDetailDTO(story, "zh_CN")
	if detail.FullContent != "full text" {
		t.Fatalf("detail view must carry full content, got %q", detail.FullContent)
	}
}

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/piyingxi/shadowplay-backend/internal/services"
)

type CharacterHandler struct {
	characterService services.CharacterService
}

func NewCharacterHandler(characterService services.CharacterService) *CharacterHandler {
	return &CharacterHandler{characterService: characterService}
}

func (ch *CharacterHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "12"))

	result, err := ch.characterService.ListCharacters(c.Request.Context(), services.CharacterListInput{
		CharacterType: c.Query("type"),
		Page:          page,
		PerPage:       perPage,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ch *CharacterHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	character, err := ch.characterService.GetCharacter(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"character": character})
}

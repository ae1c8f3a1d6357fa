package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	profileUC "github.com/khoahotran/town-notes/internal/application/usecase/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/envelope"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type ProfileHandler struct {
	profileUseCase *profileUC.ProfileUseCase
	logger         logger.Logger
}

func NewProfileHandler(uc *profileUC.ProfileUseCase, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase: uc,
		logger:         log,
	}
}

func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for profile", err))
		return
	}

	input := profileUC.CreateProfileInput{
		Email:      req.Email,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Pronouns:   req.Pronouns,
		Occupation: req.Occupation,
		Bio:        req.Bio,
	}
	output, err := h.profileUseCase.CreateProfile(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, envelope.OK(output.ID))
}

func (h *ProfileHandler) FetchProfile(c *gin.Context) {
	input := profileUC.FetchProfileInput{Email: c.Param("email")}
	output, err := h.profileUseCase.FetchProfile(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, envelope.OK(ToProfileDTO(output.Profile)))
}

func (h *ProfileHandler) UpdateUser(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for profile update", err))
		return
	}

	input := profileUC.UpdateUserInput{
		Email:      c.Param("email"),
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Pronouns:   req.Pronouns,
		Occupation: req.Occupation,
		Bio:        req.Bio,
	}
	output, err := h.profileUseCase.UpdateUser(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, envelope.OK(ToUpdateResultDTO(output.Result)))
}

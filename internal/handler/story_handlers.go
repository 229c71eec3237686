package handler

import (
	"errors"
	"net/http"
	"strconv"

	"fable-server/internal/models"
	"fable-server/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const defaultListLimit = 20

func (h *StoryHandler) createStory(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	var req createStoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	story, err := h.stories.CreateStory(c.Request().Context(), userID, service.CreateStoryParams{
		Title:          req.Title,
		Description:    req.Description,
		Genre:          req.Genre,
		WordLimit:      req.WordLimit,
		CharacterLimit: req.CharacterLimit,
		MaxSegments:    req.MaxSegments,
		IsPublic:       req.IsPublic,
	})
	if err != nil {
		if !errors.Is(err, models.ErrInvalidInput) {
			h.logger.Error("Error creating story", zap.String("userID", userID.String()), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, story)
}

func (h *StoryHandler) getStory(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	detail, err := h.stories.GetStoryDetail(c.Request().Context(), storyID, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrForbidden) {
			h.logger.Error("Error getting story detail", zap.String("storyID", storyID.String()), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// listLimit parses the limit query parameter with a sane default.
func listLimit(c echo.Context) int {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	return limit
}

func (h *StoryHandler) listMyStories(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	stories, nextCursor, err := h.stories.ListMyStories(c.Request().Context(), userID, c.QueryParam("cursor"), listLimit(c))
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, storyListResponse{Stories: stories, NextCursor: nextCursor})
}

func (h *StoryHandler) listPublicStories(c echo.Context) error {
	stories, nextCursor, err := h.stories.ListPublicStories(c.Request().Context(), c.QueryParam("cursor"), listLimit(c))
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, storyListResponse{Stories: stories, NextCursor: nextCursor})
}

func (h *StoryHandler) updateMetadata(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req updateMetadataRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	if err := h.stories.UpdateMetadata(c.Request().Context(), storyID, userID, req.Title, req.Description, req.Genre); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) updateLimits(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req updateLimitsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	if err := h.stories.UpdateLimits(c.Request().Context(), storyID, userID, req.WordLimit, req.CharacterLimit); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) completeStory(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	if err := h.stories.CompleteStory(c.Request().Context(), storyID, userID); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) burnStory(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	if err := h.stories.BurnStory(c.Request().Context(), storyID, userID); err != nil {
		if !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrForbidden) {
			h.logger.Error("Error burning story", zap.String("storyID", storyID.String()), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) joinStory(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	participant, err := h.stories.JoinStory(c.Request().Context(), storyID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, participant)
}

func (h *StoryHandler) leaveStory(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	if err := h.stories.LeaveStory(c.Request().Context(), storyID, userID); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) listParticipants(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	participants, err := h.stories.ListParticipants(c.Request().Context(), storyID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, participants)
}

func (h *StoryHandler) transferAuthorship(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req transferAuthorshipRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	newAuthorID, err := uuid.Parse(req.NewAuthorID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid new author ID format"})
	}

	if err := h.stories.TransferAuthorship(c.Request().Context(), storyID, userID, newAuthorID); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

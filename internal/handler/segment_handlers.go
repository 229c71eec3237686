package handler

import (
	"errors"
	"net/http"

	"fable-server/internal/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (h *StoryHandler) submitSegment(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req submitSegmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	segment, err := h.segments.Submit(c.Request().Context(), storyID, userID, req.Content)
	if err != nil {
		if errors.Is(err, models.ErrInvariantViolation) {
			h.logger.Error("Turn state integrity failure on submit",
				zap.String("storyID", storyID.String()),
				zap.String("userID", userID.String()),
				zap.Error(err),
			)
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, segment)
}

func (h *StoryHandler) listSegments(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	segments, err := h.segments.ListSegments(c.Request().Context(), storyID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, segments)
}

func (h *StoryHandler) skipTurn(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	turn, err := h.segments.Skip(c.Request().Context(), storyID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, turn)
}

func (h *StoryHandler) currentTurn(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	turn, err := h.segments.CurrentTurn(c.Request().Context(), storyID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, turn)
}

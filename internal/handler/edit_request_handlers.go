package handler

import (
	"net/http"

	"fable-server/internal/models"
	"fable-server/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (h *StoryHandler) proposeEdit(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req proposeEditRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	params := service.ProposeEditParams{
		EditType:            models.EditType(req.EditType),
		ProposedContent:     req.ProposedContent,
		ProposedTitle:       req.ProposedTitle,
		ProposedDescription: req.ProposedDescription,
		ProposedGenre:       req.ProposedGenre,
		Reason:              req.Reason,
	}
	if req.SegmentID != "" {
		segmentID, err := uuid.Parse(req.SegmentID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid segment ID format"})
		}
		params.SegmentID = &segmentID
	}

	created, err := h.edits.Propose(c.Request().Context(), storyID, userID, params)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *StoryHandler) listPendingEdits(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	pending, err := h.edits.ListPending(c.Request().Context(), storyID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, pending)
}

func (h *StoryHandler) approveEdit(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	requestID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request ID format"})
	}

	resolved, err := h.edits.Approve(c.Request().Context(), requestID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, resolved)
}

func (h *StoryHandler) denyEdit(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	requestID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request ID format"})
	}

	resolved, err := h.edits.Deny(c.Request().Context(), requestID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, resolved)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *StoryHandler) invite(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	storyID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req inviteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	inv, err := h.invitations.Invite(c.Request().Context(), storyID, userID, req.Identifier)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *StoryHandler) listMyInvitations(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	invitations, err := h.invitations.ListMyInvitations(c.Request().Context(), userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, invitations)
}

func (h *StoryHandler) acceptInvitation(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	invitationID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid invitation ID format"})
	}

	participant, err := h.invitations.Accept(c.Request().Context(), invitationID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, participant)
}

func (h *StoryHandler) acceptByToken(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	var req acceptByTokenRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invitation token is required"})
	}

	participant, err := h.invitations.AcceptByToken(c.Request().Context(), req.Token, userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, participant)
}

func (h *StoryHandler) declineInvitation(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	invitationID, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid invitation ID format"})
	}

	if err := h.invitations.Decline(c.Request().Context(), invitationID, userID); err != nil {
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"errors"
	"fmt"
	"net/http"

	"fable-server/internal/authutils"
	"fable-server/internal/interfaces"
	"fable-server/internal/middleware"
	"fable-server/internal/models"
	"fable-server/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// APIError is the standardized error response body.
type APIError struct {
	Message string `json:"message"`
}

// StoryHandler exposes the collaboration engine over HTTP.
type StoryHandler struct {
	stories     service.StoryService
	segments    service.SegmentService
	edits       service.EditRequestService
	invitations service.InvitationService
	logger      *zap.Logger
	verifier    *authutils.JWTVerifier
}

// NewStoryHandler creates a new StoryHandler.
func NewStoryHandler(
	stories service.StoryService,
	segments service.SegmentService,
	edits service.EditRequestService,
	invitations service.InvitationService,
	logger *zap.Logger,
	jwtSecret string,
) *StoryHandler {
	verifier, err := authutils.NewJWTVerifier(jwtSecret, logger)
	if err != nil {
		logger.Fatal("Failed to create JWT Verifier", zap.Error(err))
	}
	return &StoryHandler{
		stories:     stories,
		segments:    segments,
		edits:       edits,
		invitations: invitations,
		logger:      logger.Named("StoryHandler"),
		verifier:    verifier,
	}
}

// RegisterRoutes wires all routes behind the user auth middleware.
func (h *StoryHandler) RegisterRoutes(e *echo.Echo) {
	authMiddleware := middleware.AuthMiddleware(h.verifier.VerifyToken, h.logger)

	storiesGroup := e.Group("/stories", authMiddleware)
	{
		storiesGroup.POST("", h.createStory)
		storiesGroup.GET("/me", h.listMyStories)
		storiesGroup.GET("/public", h.listPublicStories)
		storiesGroup.GET("/:id", h.getStory)
		storiesGroup.PATCH("/:id", h.updateMetadata)
		storiesGroup.PATCH("/:id/limits", h.updateLimits)
		storiesGroup.POST("/:id/complete", h.completeStory)
		storiesGroup.DELETE("/:id", h.burnStory)
		storiesGroup.POST("/:id/join", h.joinStory)
		storiesGroup.POST("/:id/leave", h.leaveStory)
		storiesGroup.GET("/:id/participants", h.listParticipants)
		storiesGroup.POST("/:id/author", h.transferAuthorship)

		storiesGroup.POST("/:id/segments", h.submitSegment)
		storiesGroup.GET("/:id/segments", h.listSegments)
		storiesGroup.POST("/:id/skip", h.skipTurn)
		storiesGroup.GET("/:id/turn", h.currentTurn)

		storiesGroup.POST("/:id/edit-requests", h.proposeEdit)
		storiesGroup.GET("/:id/edit-requests", h.listPendingEdits)

		storiesGroup.POST("/:id/invitations", h.invite)
	}

	editsGroup := e.Group("/edit-requests", authMiddleware)
	{
		editsGroup.POST("/:id/approve", h.approveEdit)
		editsGroup.POST("/:id/deny", h.denyEdit)
	}

	invitationsGroup := e.Group("/invitations", authMiddleware)
	{
		invitationsGroup.GET("/me", h.listMyInvitations)
		invitationsGroup.POST("/accept", h.acceptByToken)
		invitationsGroup.POST("/:id/accept", h.acceptInvitation)
		invitationsGroup.POST("/:id/decline", h.declineInvitation)
	}
}

// getUserIDFromContext extracts the authenticated user ID placed there
// by the auth middleware.
func getUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	val := c.Request().Context().Value(models.UserContextKey)
	if val == nil {
		return uuid.Nil, fmt.Errorf("user_id missing from request context")
	}
	userID, ok := val.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid user_id in request context: %T", val)
	}
	return userID, nil
}

// parseIDParam parses the :id path parameter as a UUID.
func parseIDParam(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

func handleServiceError(c echo.Context, err error) error {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Unauthorized"}
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, service.ErrInviteeNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrForbidden),
		errors.Is(err, service.ErrNotAParticipant),
		errors.Is(err, service.ErrNotYourTurn),
		errors.Is(err, service.ErrNotYourInvitation):
		statusCode = http.StatusForbidden
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, service.ErrStoryClosed),
		errors.Is(err, service.ErrAlreadyComplete),
		errors.Is(err, service.ErrAlreadyResolved),
		errors.Is(err, service.ErrTurnConflict),
		errors.Is(err, service.ErrStoryNotJoinable),
		errors.Is(err, interfaces.ErrAlreadyParticipant),
		errors.Is(err, interfaces.ErrAlreadyInvited):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, service.ErrWordLimitExceeded),
		errors.Is(err, service.ErrCharacterLimitExceeded),
		errors.Is(err, service.ErrEmptySegment),
		errors.Is(err, service.ErrCannotInviteSelf),
		errors.Is(err, interfaces.ErrInvalidCursor):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, service.ErrInvitationExpired):
		statusCode = http.StatusGone
		apiErr = APIError{Message: err.Error()}
	default:
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}
	return c.JSON(statusCode, apiErr)
}

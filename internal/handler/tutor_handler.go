package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/speakup-api/internal/dto"
	"github.com/noah-isme/speakup-api/internal/service"
	"github.com/noah-isme/speakup-api/internal/utils"
	"github.com/noah-isme/speakup-api/pkg/ai"
)

// HeaderResultSource tells clients whether a body came from the model or a fallback.
const HeaderResultSource = "X-Result-Source"

// TutorHandler exposes the AI tutor commands over HTTP.
type TutorHandler struct {
	service service.TutorService
	logger  zerolog.Logger
}

// NewTutorHandler constructs a tutor handler.
func NewTutorHandler(service service.TutorService, logger zerolog.Logger) *TutorHandler {
	return &TutorHandler{
		service: service,
		logger:  logger.With().Str("component", "tutor_handler").Logger(),
	}
}

// Register wires tutor routes.
func (h *TutorHandler) Register(router fiber.Router) {
	router.Post("/initialize", h.initialize)
	router.Post("/test-connection", h.testConnection)
	router.Post("/feedback", h.feedback)
	router.Post("/practice-content", h.practiceContent)
	router.Post("/speech/enhance", h.enhanceSpeech)
}

func (h *TutorHandler) initialize(c *fiber.Ctx) error {
	var payload dto.ServiceKeyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.Initialize(c.UserContext(), payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "Gemini service initialized successfully", nil)
}

func (h *TutorHandler) testConnection(c *fiber.Ctx) error {
	var payload dto.ServiceKeyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	message, err := h.service.TestConnection(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, message, nil)
}

func (h *TutorHandler) feedback(c *fiber.Ctx) error {
	var payload dto.TutorFeedbackRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.TutorFeedback(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(HeaderResultSource, string(result.Source))
	return utils.SendSuccess(c, "feedback generated", dto.NewTutorFeedbackResponse(result.Feedback))
}

func (h *TutorHandler) practiceContent(c *fiber.Ctx) error {
	var payload dto.PracticeContentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.PracticeContent(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(HeaderResultSource, string(result.Source))
	return utils.SendSuccess(c, "practice content generated", dto.PracticeContentResponse{Content: result.Content})
}

func (h *TutorHandler) enhanceSpeech(c *fiber.Ctx) error {
	var payload dto.SpeechEnhanceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.EnhanceSpeech(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "speech enhanced", dto.SpeechEnhanceResponse{Result: result})
}

func (h *TutorHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAPIKeyRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrServiceUninitialized):
		return utils.SendError(c, fiber.StatusPreconditionFailed, err.Error())
	case errors.Is(err, ai.ErrTransport), errors.Is(err, ai.ErrDecode), errors.Is(err, ai.ErrNoCandidates):
		requestLogger(h.logger, c).Warn().Err(err).Str("kind", ai.ErrorKind(err)).Msg("upstream generation failed")
		return utils.SendError(c, fiber.StatusBadGateway, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("tutor request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
}

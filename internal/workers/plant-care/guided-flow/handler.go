package guidedflow

import (
	"context"
	"strings"
	"time"

	apperrors "chat-assistant/internal/common/errors"
	"chat-assistant/internal/common/logger"
	"chat-assistant/internal/common/metrics"
	"chat-assistant/internal/common/plantapi"
	"chat-assistant/internal/models"
	buildresponse "chat-assistant/internal/workers/infrastructure/build-response"
)

const (
	TaskType = "guided-flow"
)

// ImageSource resolves an image reference received from the chat transport
// into bytes.
type ImageSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

type PlantService interface {
	Diagnose(ctx context.Context, in plantapi.DiagnosisRequest) (plantapi.Result, error)
	Solutions(ctx context.Context, disease string) (plantapi.Result, error)
	Identify(ctx context.Context, image []byte) (plantapi.Result, error)
}

type Handler struct {
	config    *Config
	plants    PlantService
	images    ImageSource
	formatter *buildresponse.Formatter
	logger    logger.Logger
}

func NewHandler(config *Config, plants PlantService, images ImageSource, formatter *buildresponse.Formatter, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		plants:    plants,
		images:    images,
		formatter: formatter,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Start resets sess to the main menu.
func (h *Handler) Start(sess *models.Session, now time.Time) []models.Reply {
	from := sess.State
	sess.Reset(now)
	h.transitioned(sess.Key, from, sess.State)
	return []models.Reply{{Text: GreetingPrompt, Options: MainMenuOptions}}
}

// Handle advances sess by one message. The returned replies are always safe
// to send, including when err is non-nil: err only reports what went wrong
// so the caller can log it. A message of the wrong content type for the
// current state yields no replies and no transition.
func (h *Handler) Handle(ctx context.Context, sess *models.Session, msg models.InboundMessage) ([]models.Reply, error) {
	from := sess.State

	if msg.ContentType() != expectedContent(from) {
		h.logger.Debug("message ignored in current state", map[string]interface{}{
			"sessionKey":  sess.Key,
			"state":       string(from),
			"contentType": string(msg.ContentType()),
		})
		return nil, nil
	}

	replies, err := h.step(ctx, sess, msg)
	h.transitioned(sess.Key, from, sess.State)
	return replies, err
}

func (h *Handler) step(ctx context.Context, sess *models.Session, msg models.InboundMessage) ([]models.Reply, error) {
	text := strings.TrimSpace(msg.Text)

	switch sess.State {
	case models.StateAwaitingChoice:
		return h.handleChoice(sess, text), nil

	case models.StateAwaitingDiagnosisImage:
		sess.Attributes.PendingImageReference = msg.Image.Ref()
		sess.State = models.StateAwaitingLocation
		return []models.Reply{{Text: LocationPrompt}}, nil

	case models.StateAwaitingLocation:
		if text == "" {
			return []models.Reply{{Text: LocationPrompt}}, nil
		}
		sess.Attributes.Location = text
		sess.State = models.StateAwaitingWaterSchedule
		return []models.Reply{{Text: WaterPrompt, Options: WaterOptions}}, nil

	case models.StateAwaitingWaterSchedule:
		idx, err := selectOption(text, WaterOptions)
		if err != nil {
			return []models.Reply{{Text: apperrors.MessageInvalidOption, Options: WaterOptions}}, err
		}
		sess.Attributes.Water = &idx
		sess.State = models.StateAwaitingSunlightExposure
		return []models.Reply{{Text: SunlightPrompt, Options: SunlightOptions}}, nil

	case models.StateAwaitingSunlightExposure:
		idx, err := selectOption(text, SunlightOptions)
		if err != nil {
			return []models.Reply{{Text: apperrors.MessageInvalidOption, Options: SunlightOptions}}, err
		}
		sess.Attributes.Sunlight = &idx
		replies, err := h.diagnose(ctx, sess)
		return append([]models.Reply{{Text: DiagnosingNotice}}, replies...), err

	case models.StateAwaitingSolutionsDecision:
		if text != OptionRecommendSolutions {
			sess.State = models.StateAwaitingChoice
			return []models.Reply{mainMenu()}, nil
		}
		return h.recommend(ctx, sess)

	case models.StateAwaitingIdentificationImage:
		replies, err := h.identify(ctx, sess, msg.Image.Ref())
		return append([]models.Reply{{Text: ProcessingNotice}}, replies...), err

	default:
		h.logger.Warn("guided flow received a session outside the flow", map[string]interface{}{
			"sessionKey": sess.Key,
			"state":      string(sess.State),
		})
		return nil, nil
	}
}

func (h *Handler) handleChoice(sess *models.Session, text string) []models.Reply {
	switch text {
	case OptionDiagnose:
		sess.State = models.StateAwaitingDiagnosisImage
		return []models.Reply{{Text: DiagnosisImagePrompt}}
	case OptionIdentify:
		sess.State = models.StateAwaitingIdentificationImage
		return []models.Reply{{Text: IdentifyImagePrompt}}
	default:
		sess.State = models.StateAwaitingFreeformChat
		return []models.Reply{{Text: HelpPrompt}}
	}
}

func (h *Handler) diagnose(ctx context.Context, sess *models.Session) ([]models.Reply, error) {
	failed := []models.Reply{{Text: DiagnosisFailed}}

	image, err := h.fetchImage(ctx, sess.Attributes.PendingImageReference)
	if err != nil {
		return failed, err
	}

	req := plantapi.DiagnosisRequest{
		Image:    image,
		Location: sess.Attributes.Location,
	}
	if sess.Attributes.Water != nil {
		req.Water = *sess.Attributes.Water
	}
	if sess.Attributes.Sunlight != nil {
		req.Sunlight = *sess.Attributes.Sunlight
	}

	result, err := h.plants.Diagnose(ctx, req)
	if err != nil {
		return failed, err
	}

	sess.Attributes.LastDiagnosis = result
	sess.State = models.StateAwaitingSolutionsDecision

	return []models.Reply{
		{Text: h.formatter.RenderDiagnosis(plantapi.FinalDecision(result))},
		{Text: SolutionsPrompt, Options: []string{OptionRecommendSolutions}},
	}, nil
}

func (h *Handler) recommend(ctx context.Context, sess *models.Session) ([]models.Reply, error) {
	decision := plantapi.FinalDecision(sess.Attributes.LastDiagnosis)
	if len(decision) == 0 {
		sess.State = models.StateAwaitingChoice
		return []models.Reply{{Text: NoDiagnosisNotice}, mainMenu()}, nil
	}

	result, err := h.plants.Solutions(ctx, decision[0])
	if err != nil {
		return []models.Reply{{Text: SolutionsFailed}}, err
	}

	sess.State = models.StateAwaitingChoice
	return []models.Reply{{Text: h.formatter.RenderSolutions(result)}, mainMenu()}, nil
}

func (h *Handler) identify(ctx context.Context, sess *models.Session, ref string) ([]models.Reply, error) {
	failed := []models.Reply{{Text: IdentificationFailed}}

	image, err := h.fetchImage(ctx, ref)
	if err != nil {
		return failed, err
	}

	result, err := h.plants.Identify(ctx, image)
	if err != nil {
		return failed, err
	}

	sess.State = models.StateAwaitingChoice
	return []models.Reply{{Text: h.formatter.RenderIdentification(result)}, mainMenu()}, nil
}

func (h *Handler) fetchImage(ctx context.Context, ref string) ([]byte, error) {
	if h.config.ImageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.ImageTimeout)
		defer cancel()
	}
	return h.images.Fetch(ctx, ref)
}

func (h *Handler) transitioned(sessionKey string, from, to models.SessionState) {
	if from == to {
		return
	}
	metrics.StateTransitions.WithLabelValues(string(from), string(to)).Inc()
	h.logger.Info("session state changed", map[string]interface{}{
		"sessionKey": sessionKey,
		"from":       string(from),
		"to":         string(to),
	})
}

func expectedContent(state models.SessionState) models.ContentType {
	switch state {
	case models.StateAwaitingDiagnosisImage, models.StateAwaitingIdentificationImage:
		return models.ContentImage
	default:
		return models.ContentText
	}
}

// selectOption matches text exactly against options and returns its index.
func selectOption(text string, options []string) (int, error) {
	for i, opt := range options {
		if text == opt {
			return i, nil
		}
	}
	return -1, apperrors.NewInvalidSelectionError(text, options)
}

func mainMenu() models.Reply {
	return models.Reply{Text: NextStepPrompt, Options: MainMenuOptions}
}

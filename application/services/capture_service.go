package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dreamcatcher/application/agents"
	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	domainservices "dreamcatcher/domain/services"
	"dreamcatcher/infrastructure/observability"
	pkgerrors "dreamcatcher/pkg/errors"
)

// SupportedAudioExtensions lists the audio formats accepted for voice capture.
var SupportedAudioExtensions = []string{".wav", ".mp3", ".ogg", ".webm", ".m4a"}

// UrgencyDefaults supplies a user's default urgency hint.
type UrgencyDefaults interface {
	DefaultUrgency(ctx context.Context, userID string) string
}

// TextCapture is a typed idea.
type TextCapture struct {
	UserID     string
	Content    string
	Urgency    string
	Location   map[string]interface{}
	DeviceInfo map[string]interface{}
}

// VoiceCapture is a recorded idea.
type VoiceCapture struct {
	UserID   string
	Audio    io.Reader
	Filename string
	Urgency  string
	Location map[string]interface{}
}

// DreamCapture is a dream journal entry.
type DreamCapture struct {
	UserID     string
	Content    string
	DreamType  string
	SleepStage string
}

// CaptureResult is returned to the client once an idea is stored.
type CaptureResult struct {
	IdeaID        string   `json:"idea_id"`
	SourceType    string   `json:"source_type"`
	UrgencyScore  float64  `json:"urgency_score"`
	Tags          []string `json:"tags"`
	Transcription string   `json:"transcription,omitempty"`
	Queued        bool     `json:"queued"`
	Message       string   `json:"message"`
}

// CaptureService stores new ideas and hands them to the agent pipeline.
type CaptureService struct {
	ideas       ports.IdeaRepository
	transcriber ports.Transcriber
	scorer      *domainservices.SharedScorer
	pipeline    ports.TaskSubmitter
	publisher   ports.EventPublisher
	defaults    UrgencyDefaults
	metrics     *observability.Collector
	uploadDir   string
	logger      *zap.Logger
}

// CaptureConfig wires a CaptureService. Transcriber, Defaults, Metrics and
// UploadDir are optional.
type CaptureConfig struct {
	Ideas       ports.IdeaRepository
	Transcriber ports.Transcriber
	Scorer      *domainservices.SharedScorer
	Pipeline    ports.TaskSubmitter
	Publisher   ports.EventPublisher
	Defaults    UrgencyDefaults
	Metrics     *observability.Collector
	UploadDir   string
	Logger      *zap.Logger
}

// NewCaptureService creates the service.
func NewCaptureService(cfg CaptureConfig) *CaptureService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaptureService{
		ideas:       cfg.Ideas,
		transcriber: cfg.Transcriber,
		scorer:      cfg.Scorer,
		pipeline:    cfg.Pipeline,
		publisher:   cfg.Publisher,
		defaults:    cfg.Defaults,
		metrics:     cfg.Metrics,
		uploadDir:   cfg.UploadDir,
		logger:      logger,
	}
}

// CaptureText stores a typed idea.
func (s *CaptureService) CaptureText(ctx context.Context, in TextCapture) (*CaptureResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, pkgerrors.NewValidation("content cannot be empty").WithCode(pkgerrors.CodeEmptyContent)
	}

	scorer := s.scorer.Get()
	hint := s.urgencyHint(ctx, in.UserID, in.Urgency)
	idea, err := entities.NewIdea(entities.CaptureInput{
		UserID:     in.UserID,
		Content:    content,
		SourceType: valueobjects.SourceText,
		DeviceInfo: in.DeviceInfo,
		Location:   in.Location,
		Urgency:    scorer.CaptureUrgency(content, hint),
		Tags:       scorer.AutoTags(content),
	})
	if err != nil {
		return nil, err
	}

	queued, err := s.store(ctx, idea, nil)
	if err != nil {
		return nil, err
	}
	return &CaptureResult{
		IdeaID:       idea.ID.String(),
		SourceType:   string(idea.SourceType),
		UrgencyScore: idea.UrgencyScore,
		Tags:         idea.Tags,
		Queued:       queued,
		Message:      "Idea captured successfully",
	}, nil
}

// CaptureVoice transcribes a recording and stores it as an idea. The audio
// is kept under the upload directory when one is configured.
func (s *CaptureService) CaptureVoice(ctx context.Context, in VoiceCapture) (*CaptureResult, error) {
	ext := strings.ToLower(filepath.Ext(in.Filename))
	if !isSupportedAudio(ext) {
		return nil, pkgerrors.NewValidation(fmt.Sprintf("unsupported audio format %q", ext)).
			WithCode(pkgerrors.CodeUnsupportedAudio).
			WithDetail("supported", SupportedAudioExtensions)
	}
	if in.Audio == nil {
		return nil, pkgerrors.NewValidation("audio file is required")
	}
	if s.transcriber == nil {
		return nil, pkgerrors.NewUnavailable("transcription")
	}

	audio := in.Audio
	var audioPath string
	if s.uploadDir != "" {
		path, file, err := s.createUpload(ext)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		audioPath = path
		if _, err := io.Copy(file, in.Audio); err != nil {
			s.removeUpload(audioPath)
			return nil, pkgerrors.NewInternal("failed to store audio").WithCause(err)
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			s.removeUpload(audioPath)
			return nil, pkgerrors.NewInternal("failed to read stored audio").WithCause(err)
		}
		audio = file
	}

	text, err := s.transcriber.Transcribe(ctx, audio, in.Filename)
	if err != nil {
		s.removeUpload(audioPath)
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.removeUpload(audioPath)
		return nil, pkgerrors.NewValidation("no speech detected in audio").WithCode(pkgerrors.CodeEmptyTranscript)
	}

	scorer := s.scorer.Get()
	hint := s.urgencyHint(ctx, in.UserID, in.Urgency)
	idea, err := entities.NewIdea(entities.CaptureInput{
		UserID:      in.UserID,
		Transcribed: text,
		SourceType:  valueobjects.SourceVoice,
		AudioPath:   audioPath,
		Location:    in.Location,
		Urgency:     scorer.CaptureUrgency(text, hint),
		Tags:        scorer.AutoTags(text),
	})
	if err != nil {
		return nil, err
	}

	queued, err := s.store(ctx, idea, nil)
	if err != nil {
		s.removeUpload(audioPath)
		return nil, err
	}
	return &CaptureResult{
		IdeaID:        idea.ID.String(),
		SourceType:    string(idea.SourceType),
		UrgencyScore:  idea.UrgencyScore,
		Tags:          idea.Tags,
		Transcription: text,
		Queued:        queued,
		Message:       "Voice idea captured successfully",
	}, nil
}

// CaptureDream stores a dream. Dreams carry a fixed low urgency.
func (s *CaptureService) CaptureDream(ctx context.Context, in DreamCapture) (*CaptureResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, pkgerrors.NewValidation("dream content cannot be empty").WithCode(pkgerrors.CodeEmptyContent)
	}
	dreamType := strings.ToLower(strings.TrimSpace(in.DreamType))
	if dreamType == "" {
		dreamType = "regular"
	}

	scorer := s.scorer.Get()
	info := map[string]interface{}{"dream_type": dreamType}
	if in.SleepStage != "" {
		info["sleep_stage"] = in.SleepStage
	}
	idea, err := entities.NewIdea(entities.CaptureInput{
		UserID:     in.UserID,
		Content:    content,
		SourceType: valueobjects.SourceDream,
		DeviceInfo: info,
		Urgency:    scorer.Rules().DreamUrgency,
		Tags:       append(scorer.AutoTags(content), "dream"),
	})
	if err != nil {
		return nil, err
	}

	queued, err := s.store(ctx, idea, map[string]interface{}{"dream_type": dreamType})
	if err != nil {
		return nil, err
	}
	return &CaptureResult{
		IdeaID:       idea.ID.String(),
		SourceType:   string(idea.SourceType),
		UrgencyScore: idea.UrgencyScore,
		Tags:         idea.Tags,
		Queued:       queued,
		Message:      "Dream captured successfully",
	}, nil
}

// store persists the idea, announces it and queues it for the listener. A
// full pipeline does not fail the capture.
func (s *CaptureService) store(ctx context.Context, idea *entities.Idea, payload map[string]interface{}) (bool, error) {
	if err := s.ideas.SaveIdea(ctx, idea); err != nil {
		return false, pkgerrors.Wrap(err, "failed to save idea")
	}

	if evts := idea.GetUncommittedEvents(); len(evts) > 0 && s.publisher != nil {
		if err := s.publisher.Publish(ctx, evts...); err != nil {
			s.logger.Warn("Failed to publish capture event", zap.String("idea_id", idea.ID.String()), zap.Error(err))
		}
	}
	idea.MarkEventsAsCommitted()
	s.metrics.RecordIdeaCaptured(string(idea.SourceType))

	s.logger.Info("Idea captured",
		zap.String("idea_id", idea.ID.String()),
		zap.String("user_id", idea.UserID),
		zap.String("source", string(idea.SourceType)),
		zap.Float64("urgency", idea.UrgencyScore),
	)

	if s.pipeline == nil {
		return false, nil
	}
	err := s.pipeline.Submit(agents.ListenerID, ports.AgentTask{
		IdeaID:  idea.ID,
		UserID:  idea.UserID,
		Payload: payload,
	})
	if err != nil {
		s.logger.Warn("Idea stored but not queued for processing",
			zap.String("idea_id", idea.ID.String()),
			zap.Error(err),
		)
		return false, nil
	}
	return true, nil
}

func (s *CaptureService) urgencyHint(ctx context.Context, userID, hint string) valueobjects.UrgencyHint {
	if strings.TrimSpace(hint) == "" && s.defaults != nil {
		hint = s.defaults.DefaultUrgency(ctx, userID)
	}
	return valueobjects.ParseUrgencyHint(hint)
}

func (s *CaptureService) createUpload(ext string) (string, *os.File, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", nil, pkgerrors.NewInternal("failed to prepare upload directory").WithCause(err)
	}
	path := filepath.Join(s.uploadDir, uuid.New().String()+ext)
	file, err := os.Create(path)
	if err != nil {
		return "", nil, pkgerrors.NewInternal("failed to store audio").WithCause(err)
	}
	return path, file, nil
}

func (s *CaptureService) removeUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove audio upload", zap.String("path", path), zap.Error(err))
	}
}

func isSupportedAudio(ext string) bool {
	for _, e := range SupportedAudioExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"dreamcatcher/application/services"
	"dreamcatcher/pkg/common"
	pkgerrors "dreamcatcher/pkg/errors"
)

// CaptureHandler handles idea capture requests
type CaptureHandler struct {
	capture        *services.CaptureService
	maxUploadBytes int64
	errorHandler   *pkgerrors.ErrorHandler
	logger         *zap.Logger
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(capture *services.CaptureService, maxUploadBytes int64, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *CaptureHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 25 << 20
	}
	return &CaptureHandler{
		capture:        capture,
		maxUploadBytes: maxUploadBytes,
		errorHandler:   errorHandler,
		logger:         logger,
	}
}

// CaptureTextRequest is the body of POST /api/capture/text
type CaptureTextRequest struct {
	Content    string                 `json:"content" validate:"required,max=20000"`
	Urgency    string                 `json:"urgency,omitempty" validate:"omitempty,oneof=low normal high urgent emergency"`
	Location   map[string]interface{} `json:"location,omitempty"`
	DeviceInfo map[string]interface{} `json:"device_info,omitempty"`
}

// CaptureDreamRequest is the body of POST /api/capture/dream
type CaptureDreamRequest struct {
	Content    string `json:"content" validate:"required,max=20000"`
	DreamType  string `json:"dream_type,omitempty" validate:"omitempty,max=50"`
	SleepStage string `json:"sleep_stage,omitempty" validate:"omitempty,max=50"`
}

// CaptureText handles POST /api/capture/text
func (h *CaptureHandler) CaptureText(w http.ResponseWriter, r *http.Request) {
	var req CaptureTextRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	res, err := h.capture.CaptureText(r.Context(), services.TextCapture{
		UserID:     userID(r),
		Content:    req.Content,
		Urgency:    req.Urgency,
		Location:   req.Location,
		DeviceInfo: req.DeviceInfo,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, res)
}

// CaptureVoice handles POST /api/capture/voice. The recording arrives as the
// multipart field "audio"; "urgency" and a JSON "location" are optional.
func (h *CaptureHandler) CaptureVoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleStatus(w, r, http.StatusRequestEntityTooLarge, "audio file too large")
			return
		}
		h.errorHandler.Handle(w, r, pkgerrors.NewValidation("invalid multipart form: "+err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidation("audio file is required").WithCode(pkgerrors.CodeInvalidInput))
		return
	}
	defer file.Close()

	var location map[string]interface{}
	if raw := r.FormValue("location"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &location); err != nil {
			h.errorHandler.Handle(w, r, pkgerrors.NewValidation("location must be a JSON object"))
			return
		}
	}

	res, err := h.capture.CaptureVoice(r.Context(), services.VoiceCapture{
		UserID:   userID(r),
		Audio:    file,
		Filename: header.Filename,
		Urgency:  r.FormValue("urgency"),
		Location: location,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, res)
}

// CaptureDream handles POST /api/capture/dream
func (h *CaptureHandler) CaptureDream(w http.ResponseWriter, r *http.Request) {
	var req CaptureDreamRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	res, err := h.capture.CaptureDream(r.Context(), services.DreamCapture{
		UserID:     userID(r),
		Content:    req.Content,
		DreamType:  req.DreamType,
		SleepStage: req.SleepStage,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, res)
}

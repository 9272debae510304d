package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"fitflow-backend/internal/llm"
	"fitflow-backend/internal/prompts"
	"fitflow-backend/internal/shared/storage/object"
	"fitflow-backend/internal/shared/telemetry"
)

// DefaultMaxPhotoBytes caps uploaded photos.
const DefaultMaxPhotoBytes = 8 << 20

var (
	ErrInvalidInput = errors.New("invalid photo")
	ErrTooLarge     = errors.New("photo too large")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Mode selects the analysis performed on a photo.
type Mode string

const (
	ModePhysique Mode = "physique"
	ModeProgress Mode = "progress"
	ModeForm     Mode = "form"
)

// Request describes one photo analysis. Goals applies to physique, Weeks to progress
// and Exercise to form checks.
type Request struct {
	Mode     Mode
	FileName string
	Goals    string
	Weeks    int
	Exercise string
}

// Analysis is the model's assessment of a stored photo.
type Analysis struct {
	ID          string    `json:"analysisId"`
	Mode        Mode      `json:"mode"`
	PhotoKey    string    `json:"photoKey"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	Feedback    string    `json:"feedback"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Service stores photos and sends them to a vision-capable model.
type Service struct {
	Store    object.Store
	LLM      llm.Client
	Model    string
	MaxBytes int64
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// AnalyzePhysique assesses body composition against the lifter's goals.
func (s *Service) AnalyzePhysique(ctx context.Context, userID, fileName string, r io.Reader, goals string) (Analysis, error) {
	return s.Analyze(ctx, userID, r, Request{Mode: ModePhysique, FileName: fileName, Goals: goals})
}

// Analyze validates and stores the photo, then asks the model for the requested assessment.
func (s *Service) Analyze(ctx context.Context, userID string, r io.Reader, req Request) (Analysis, error) {
	if strings.TrimSpace(userID) == "" {
		return Analysis{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	if req.Mode == "" {
		req.Mode = ModePhysique
	}
	if strings.TrimSpace(req.FileName) == "" {
		return Analysis{}, fmt.Errorf("%w: file name required", ErrInvalidInput)
	}
	system, prompt, err := buildPrompt(req)
	if err != nil {
		return Analysis{}, err
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxPhotoBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Analysis{}, fmt.Errorf("read photo: %w", err)
	}
	if int64(len(data)) > limit {
		return Analysis{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limit)
	}
	if len(data) == 0 {
		return Analysis{}, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	contentType := http.DetectContentType(data)
	if !allowedTypes[contentType] {
		return Analysis{}, fmt.Errorf("%w: unsupported content type %s", ErrInvalidInput, contentType)
	}

	if s.Store == nil {
		return Analysis{}, errors.New("missing object store")
	}
	obj, err := s.Store.Save(ctx, userID, req.FileName, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Analysis{}, err
		}
		return Analysis{}, fmt.Errorf("store photo: %w", err)
	}

	client := s.LLM
	if client == nil {
		client = llm.PlaceholderClient{}
	}
	resp, err := client.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      prompt,
		Temperature: prompts.VisionParams.Temperature,
		MaxTokens:   prompts.VisionParams.MaxTokens,
		Images:      []llm.Image{{MimeType: contentType, Data: data}},
		Model:       s.Model,
	})
	if err != nil {
		telemetry.Warn("vision.failed", map[string]any{
			"user_id":   userID,
			"mode":      string(req.Mode),
			"photo_key": obj.Key,
			"error":     err.Error(),
		})
		// no analysis will reference the photo
		s.discard(userID, obj.Key)
		return Analysis{}, err
	}

	analysis := Analysis{
		ID:          uuid.NewString(),
		Mode:        req.Mode,
		PhotoKey:    obj.Key,
		ContentType: contentType,
		SizeBytes:   obj.Size,
		Feedback:    resp.Text,
		Model:       resp.Model,
		CreatedAt:   s.now(),
	}
	telemetry.Info("vision.analyzed", map[string]any{
		"user_id":     userID,
		"analysis_id": analysis.ID,
		"mode":        string(req.Mode),
		"size_bytes":  obj.Size,
	})
	return analysis, nil
}

func (s *Service) discard(userID, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Store.Delete(ctx, key); err != nil {
		telemetry.Warn("vision.photo_cleanup_failed", map[string]any{
			"user_id":   userID,
			"photo_key": key,
			"error":     err.Error(),
		})
	}
}

func buildPrompt(req Request) (system, prompt string, err error) {
	switch req.Mode {
	case ModePhysique:
		prompt, err = prompts.Physique(req.Goals)
		return prompts.VisionSystem, prompt, err
	case ModeProgress:
		if req.Weeks <= 0 || req.Weeks > 520 {
			return "", "", fmt.Errorf("%w: weeks must be between 1 and 520", ErrInvalidInput)
		}
		prompt, err = prompts.Progress(req.Weeks)
		return prompts.ProgressSystem, prompt, err
	case ModeForm:
		if strings.TrimSpace(req.Exercise) == "" {
			return "", "", fmt.Errorf("%w: exercise is required", ErrInvalidInput)
		}
		prompt, err = prompts.Form(req.Exercise)
		return prompts.FormSystem, prompt, err
	default:
		return "", "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, req.Mode)
	}
}

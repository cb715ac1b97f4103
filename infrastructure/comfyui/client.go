// Package comfyui submits image generation workflows to a ComfyUI server.
package comfyui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	pkgerrors "dreamcatcher/pkg/errors"
)

// Style tunes the workflow for a kind of idea.
type Style struct {
	Positive string
	Negative string
	Sampler  string
	Steps    int
	CFG      float64
}

// Styles maps idea categories (and "abstract") to rendering styles.
var Styles = map[string]Style{
	"creative":     {"artistic, abstract, vibrant colors, creative composition", "boring, conventional, monochrome", "euler", 25, 7.5},
	"business":     {"professional, modern, clean, corporate, sleek design", "chaotic, unprofessional, messy", "dpmpp_2m", 20, 7.0},
	"utility":      {"technical diagram, blueprint, schematic, clean lines, precise", "artistic, abstract, imprecise", "euler", 20, 8.0},
	"personal":     {"warm, personal, lifestyle, comfortable, natural lighting", "cold, impersonal, harsh", "dpmpp_2m", 25, 7.0},
	"metaphysical": {"ethereal, mystical, cosmic, spiritual, otherworldly", "mundane, ordinary, earthly", "euler", 30, 8.5},
	"abstract":     {"abstract art, flowing shapes, symbolic, expressive color", "text, words, photorealistic", "euler", 25, 7.5},
}

// StyleFor returns the style for name, falling back to creative.
func StyleFor(name string) Style {
	if s, ok := Styles[name]; ok {
		return s
	}
	return Styles["creative"]
}

// Config configures the client.
type Config struct {
	BaseURL      string
	Checkpoint   string
	PollInterval time.Duration
	Timeout      time.Duration
}

// Client talks to the ComfyUI HTTP API.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ ports.ImageGenerator = (*Client)(nil)

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Checkpoint == "" {
		cfg.Checkpoint = "sd_xl_base_1.0.safetensors"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "comfyui",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		logger: logger,
	}
}

// Available checks GET /system_stats.
func (c *Client) Available(ctx context.Context) bool {
	if c.breaker.State() == gobreaker.StateOpen {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/system_stats", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Generate queues a workflow for prompt and waits for its output images.
func (c *Client) Generate(ctx context.Context, prompt, style string) ([]string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		id, err := c.queue(ctx, BuildWorkflow(prompt, StyleFor(style), c.cfg.Checkpoint, rand.Int63n(1<<31)))
		if err != nil {
			return nil, err
		}
		return c.wait(ctx, id)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, pkgerrors.NewUnavailable("comfyui").WithCode(pkgerrors.CodeCircuitOpen)
		}
		return nil, pkgerrors.NewExternal("comfyui", err)
	}
	return out.([]string), nil
}

func (c *Client) queue(ctx context.Context, workflow map[string]interface{}) (string, error) {
	body, err := json.Marshal(map[string]interface{}{"prompt": workflow})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("queue prompt: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("queue prompt: status %d", resp.StatusCode)
	}

	var queued struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		return "", fmt.Errorf("decode queue response: %w", err)
	}
	if queued.PromptID == "" {
		return "", fmt.Errorf("queue prompt: no prompt_id returned")
	}
	return queued.PromptID, nil
}

type historyEntry struct {
	Outputs map[string]struct {
		Images []struct {
			Filename string `json:"filename"`
		} `json:"images"`
	} `json:"outputs"`
}

func (c *Client) wait(ctx context.Context, promptID string) ([]string, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		files, done, err := c.history(ctx, promptID)
		if err != nil {
			return nil, err
		}
		if done {
			return files, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for prompt %s: %w", promptID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) history(ctx context.Context, promptID string) ([]string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/history/"+promptID, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("fetch history: status %d", resp.StatusCode)
	}

	var history map[string]historyEntry
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, false, fmt.Errorf("decode history: %w", err)
	}
	entry, ok := history[promptID]
	if !ok || len(entry.Outputs) == 0 {
		return nil, false, nil
	}

	nodes := make([]string, 0, len(entry.Outputs))
	for node := range entry.Outputs {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	var files []string
	for _, node := range nodes {
		for _, img := range entry.Outputs[node].Images {
			files = append(files, img.Filename)
		}
	}
	return files, true, nil
}

// BuildWorkflow returns an SDXL text-to-image graph in ComfyUI's API format.
func BuildWorkflow(prompt string, style Style, checkpoint string, seed int64) map[string]interface{} {
	return map[string]interface{}{
		"1": node("CheckpointLoaderSimple", map[string]interface{}{"ckpt_name": checkpoint}),
		"2": node("EmptyLatentImage", map[string]interface{}{"width": 1024, "height": 1024, "batch_size": 1}),
		"3": node("KSampler", map[string]interface{}{
			"seed":         seed,
			"steps":        style.Steps,
			"cfg":          style.CFG,
			"sampler_name": style.Sampler,
			"scheduler":    "normal",
			"denoise":      1.0,
			"model":        []interface{}{"1", 0},
			"positive":     []interface{}{"6", 0},
			"negative":     []interface{}{"7", 0},
			"latent_image": []interface{}{"2", 0},
		}),
		"4": node("VAEDecode", map[string]interface{}{"samples": []interface{}{"3", 0}, "vae": []interface{}{"1", 2}}),
		"5": node("SaveImage", map[string]interface{}{"filename_prefix": "dreamcatcher_idea", "images": []interface{}{"4", 0}}),
		"6": node("CLIPTextEncode", map[string]interface{}{"text": prompt + ", " + style.Positive, "clip": []interface{}{"1", 1}}),
		"7": node("CLIPTextEncode", map[string]interface{}{"text": style.Negative, "clip": []interface{}{"1", 1}}),
	}
}

func node(class string, inputs map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"class_type": class, "inputs": inputs}
}

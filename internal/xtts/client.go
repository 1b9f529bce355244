package xtts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"xtts-desktop/internal/domain"
)

// DefaultContentType is assumed when the server omits Content-Type.
const DefaultContentType = "audio/wav"

// Request is one synthesis call.
type Request struct {
	Text     string
	VoiceID  string
	Language string
}

// payload mirrors the server's /tts_to_audio/ body.
type payload struct {
	Text       string `json:"text"`
	VoiceID    string `json:"voice_id"`
	SpeakerWAV string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// Client talks to an XTTS API server. The base URL is supplied per call.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a client; timeout <= 0 disables the request deadline.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{}
	if timeout > 0 {
		httpClient.Timeout = timeout
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "xtts-client")),
	}
}

// Synthesize posts text to /tts_to_audio/ and returns the audio body.
// Whitespace-only text returns empty audio without contacting the server.
func (c *Client) Synthesize(ctx context.Context, baseURL string, req Request) (domain.Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return domain.Audio{}, nil
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		return domain.Audio{}, domain.ErrNoVoiceSelected
	}

	body, err := json.Marshal(payload{
		Text:       req.Text,
		VoiceID:    req.VoiceID,
		SpeakerWAV: req.VoiceID + ".wav",
		Language:   req.Language,
	})
	if err != nil {
		return domain.Audio{}, fmt.Errorf("marshal tts payload: %w", err)
	}

	url := endpoint(baseURL, "tts_to_audio/")
	c.logger.Info("tts request", slog.String("url", url), slog.String("voice_id", req.VoiceID),
		slog.String("language", req.Language), slog.Int("chars", len([]rune(req.Text))))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Audio{}, domain.NewError(domain.KindInvalidInput, "invalid server url", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq)
}

// Speakers returns the voice catalog from /speakers.
func (c *Client) Speakers(ctx context.Context, baseURL string) ([]domain.Voice, error) {
	var raw []domain.Voice
	if err := c.getJSON(ctx, endpoint(baseURL, "speakers"), &raw); err != nil {
		return nil, fmt.Errorf("fetch voices: %w", err)
	}

	base := domain.NormalizeServerURL(baseURL)
	voices := make([]domain.Voice, 0, len(raw))
	for _, v := range raw {
		if v.PreviewURL != "" && !strings.HasPrefix(v.PreviewURL, "http") {
			v.PreviewURL = base + "/" + strings.TrimLeft(v.PreviewURL, "/")
		}
		voices = append(voices, v)
	}
	return voices, nil
}

// Languages returns the language catalog from /languages in server order.
func (c *Client) Languages(ctx context.Context, baseURL string) (domain.LanguageCatalog, error) {
	var resp languagesResponse
	if err := c.getJSON(ctx, endpoint(baseURL, "languages"), &resp); err != nil {
		return nil, fmt.Errorf("fetch languages: %w", err)
	}
	return domain.LanguageCatalog(resp.Languages), nil
}

// do executes an audio request and classifies failures.
func (c *Client) do(httpReq *http.Request) (domain.Audio, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return domain.Audio{}, err
		}
		return domain.Audio{}, domain.NewError(domain.KindConnection, "could not connect to XTTS server", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Audio{}, domain.NewError(domain.KindConnection, "read response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Audio{}, serverError(resp.StatusCode, data)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}
	return domain.Audio{Data: data, ContentType: contentType}, nil
}

// getJSON performs a GET and decodes a JSON body into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.NewError(domain.KindInvalidInput, "invalid server url", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.NewError(domain.KindConnection, "could not connect to XTTS server", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return serverError(resp.StatusCode, data)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewError(domain.KindServer, "malformed server response", err)
	}
	return nil
}

// serverError keeps the response body as the user-facing message.
func serverError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(status)
	}
	return &domain.Error{
		Kind:       domain.KindServer,
		Message:    message,
		StatusCode: status,
	}
}

// endpoint joins the normalized base URL and a path.
func endpoint(baseURL, path string) string {
	return domain.NormalizeServerURL(baseURL) + "/" + path
}

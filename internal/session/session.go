package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"xtts-desktop/internal/domain"
	"xtts-desktop/internal/xtts"
)

const (
	// DefaultLanguageName is preferred when the previous language disappears.
	DefaultLanguageName = "English"
	// FallbackLanguageCode is sent when no language is selected.
	FallbackLanguageCode = "en"
	// DefaultPreviewText is synthesized when no preview text is configured.
	DefaultPreviewText = "test"
)

// Client is the subset of the XTTS client the session drives.
type Client interface {
	Synthesize(ctx context.Context, baseURL string, req xtts.Request) (domain.Audio, error)
	Speakers(ctx context.Context, baseURL string) ([]domain.Voice, error)
	Languages(ctx context.Context, baseURL string) (domain.LanguageCatalog, error)
}

// Snapshot is an immutable view of the server, catalogs and selections.
type Snapshot struct {
	ServerURL   string                 `json:"serverUrl"`
	Voices      []domain.Voice         `json:"voices"`
	Languages   domain.LanguageCatalog `json:"languages"`
	Voice       string                 `json:"voice"`
	Language    string                 `json:"language"`
	RefreshedAt time.Time              `json:"refreshedAt"`
}

// SelectedVoice resolves the selected name against the voice catalog.
func (s Snapshot) SelectedVoice() (domain.Voice, bool) {
	if s.Voice == "" {
		return domain.Voice{}, false
	}
	return lo.Find(s.Voices, func(v domain.Voice) bool { return v.Name == s.Voice })
}

// LanguageCode returns the selected language's code, or "en" when unset or unknown.
func (s Snapshot) LanguageCode() string {
	if code, ok := s.Languages.Code(s.Language); ok && s.Language != "" {
		return code
	}
	return FallbackLanguageCode
}

// VoiceNames lists display names in catalog order.
func (s Snapshot) VoiceNames() []string {
	return lo.Map(s.Voices, func(v domain.Voice, _ int) string { return v.Name })
}

// Session holds the current snapshot. Reads are lock-free; writers are serialized.
type Session struct {
	client Client
	logger *slog.Logger
	mu     sync.Mutex
	snap   atomic.Pointer[Snapshot]
}

// New creates a session for serverURL with preferred selections that are
// confirmed or replaced on the first refresh.
func New(client Client, serverURL, voice, language string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		client: client,
		logger: logger.With(slog.String("component", "session")),
	}
	s.snap.Store(&Snapshot{
		ServerURL: domain.NormalizeServerURL(serverURL),
		Voice:     strings.TrimSpace(voice),
		Language:  strings.TrimSpace(language),
	})
	return s
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	return *s.snap.Load()
}

// SetServerURL points the session at a new server. Catalogs are kept until the next refresh.
func (s *Session) SetServerURL(raw string) (Snapshot, error) {
	url := domain.NormalizeServerURL(raw)
	if url == "" {
		return s.Snapshot(), domain.NewError(domain.KindInvalidInput, "Server URL is required.", nil)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return s.Snapshot(), domain.NewError(domain.KindInvalidInput, fmt.Sprintf("Server URL must start with http:// or https://: %s", url), nil)
	}

	return s.update(func(next *Snapshot) error {
		next.ServerURL = url
		return nil
	})
}

// SelectVoice selects a voice by display name.
func (s *Session) SelectVoice(name string) (Snapshot, error) {
	return s.update(func(next *Snapshot) error {
		if !lo.ContainsBy(next.Voices, func(v domain.Voice) bool { return v.Name == name }) {
			return domain.NewError(domain.KindInvalidInput, fmt.Sprintf("Unknown voice: %s", name), nil)
		}
		next.Voice = name
		return nil
	})
}

// SelectLanguage selects a language by display name.
func (s *Session) SelectLanguage(name string) (Snapshot, error) {
	return s.update(func(next *Snapshot) error {
		if _, ok := next.Languages.Code(name); !ok {
			return domain.NewError(domain.KindInvalidInput, fmt.Sprintf("Unknown language: %s", name), nil)
		}
		next.Language = name
		return nil
	})
}

// Refresh fetches both catalogs concurrently and swaps them in together.
// On any failure the previous snapshot is kept and the error returned.
func (s *Session) Refresh(ctx context.Context) (Snapshot, error) {
	url := s.Snapshot().ServerURL

	var (
		voices    []domain.Voice
		languages domain.LanguageCatalog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		voices, err = s.client.Speakers(gctx, url)
		return err
	})
	g.Go(func() error {
		var err error
		languages, err = s.client.Languages(gctx, url)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("catalog refresh failed", slog.String("url", url), slog.Any("error", err))
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	if cur.ServerURL != url {
		s.logger.Info("discarding catalogs for previous server", slog.String("url", url))
		return *cur, nil
	}

	next := *cur
	next.Voices = voices
	next.Languages = languages
	next.Voice, next.Language = reselect(cur.Voice, cur.Language, voices, languages)
	next.RefreshedAt = time.Now()
	s.snap.Store(&next)

	s.logger.Info("catalog refreshed", slog.String("url", url),
		slog.Int("voices", len(voices)), slog.Int("languages", len(languages)),
		slog.String("voice", next.Voice), slog.String("language", next.Language))
	return next, nil
}

// Synthesize speaks text with the selected voice and language. Blank text is a
// no-op and returns empty audio, whether or not a voice is selected.
func (s *Session) Synthesize(ctx context.Context, text string) (domain.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Audio{}, nil
	}
	snap := s.Snapshot()
	voice, ok := snap.SelectedVoice()
	if !ok {
		return domain.Audio{}, domain.ErrNoVoiceSelected
	}
	return s.client.Synthesize(ctx, snap.ServerURL, xtts.Request{
		Text:     text,
		VoiceID:  voice.VoiceID,
		Language: snap.LanguageCode(),
	})
}

// Preview synthesizes sampleText (DefaultPreviewText when blank) with the
// selected voice. Listed preview URLs are not played.
func (s *Session) Preview(ctx context.Context, sampleText string) (domain.Audio, error) {
	if strings.TrimSpace(sampleText) == "" {
		sampleText = DefaultPreviewText
	}
	return s.Synthesize(ctx, sampleText)
}

// update applies fn to a copy of the snapshot under the writer lock.
func (s *Session) update(fn func(next *Snapshot) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.snap.Load()
	if err := fn(&next); err != nil {
		return *s.snap.Load(), err
	}
	s.snap.Store(&next)
	return next, nil
}

// reselect keeps previous selections that still exist. Voices fall back to the
// first entry; languages to English, then the first entry.
func reselect(prevVoice, prevLang string, voices []domain.Voice, langs domain.LanguageCatalog) (string, string) {
	voice := ""
	if lo.ContainsBy(voices, func(v domain.Voice) bool { return v.Name == prevVoice }) && prevVoice != "" {
		voice = prevVoice
	} else if len(voices) > 0 {
		voice = voices[0].Name
	}

	lang := ""
	if _, ok := langs.Code(prevLang); ok && prevLang != "" {
		lang = prevLang
	} else if _, ok := langs.Code(DefaultLanguageName); ok {
		lang = DefaultLanguageName
	} else if len(langs) > 0 {
		lang = langs[0].Name
	}
	return voice, lang
}

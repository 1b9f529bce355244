package xtts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"xtts-desktop/internal/domain"
)

// TestSynthesizeSendsPayloadAndReturnsAudio verifies the request body and response mapping.
func TestSynthesizeSendsPayloadAndReturnsAudio(t *testing.T) {
	var got payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tts_to_audio/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer server.Close()

	client := NewClient(0, nil)
	audio, err := client.Synthesize(context.Background(), server.URL+"/", Request{
		Text:     "Hello there",
		VoiceID:  "female_01",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if string(audio.Data) != "ID3-audio" {
		t.Fatalf("data = %q", audio.Data)
	}
	if audio.ContentType != "audio/mpeg" {
		t.Fatalf("content type = %q", audio.ContentType)
	}
	want := payload{Text: "Hello there", VoiceID: "female_01", SpeakerWAV: "female_01.wav", Language: "en"}
	if got != want {
		t.Fatalf("payload = %+v, want %+v", got, want)
	}
}

// TestSynthesizeDefaultsContentType checks the WAV fallback when the header is missing.
func TestSynthesizeDefaultsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte{0x01, 0x02})
	}))
	defer server.Close()

	audio, err := NewClient(0, nil).Synthesize(context.Background(), server.URL, Request{Text: "x", VoiceID: "v"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if audio.ContentType != DefaultContentType {
		t.Fatalf("content type = %q, want %q", audio.ContentType, DefaultContentType)
	}
}

// TestSynthesizeEmptyTextSkipsNetwork verifies whitespace-only text is a local no-op.
func TestSynthesizeEmptyTextSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	audio, err := NewClient(0, nil).Synthesize(context.Background(), server.URL, Request{Text: "  \n\t", VoiceID: "v"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !audio.IsEmpty() {
		t.Fatal("expected empty audio")
	}
	if calls.Load() != 0 {
		t.Fatalf("server calls = %d, want 0", calls.Load())
	}
}

// TestSynthesizeRequiresVoice checks the missing-voice error.
func TestSynthesizeRequiresVoice(t *testing.T) {
	_, err := NewClient(0, nil).Synthesize(context.Background(), "http://127.0.0.1:1", Request{Text: "hi"})
	if !errors.Is(err, domain.ErrNoVoiceSelected) {
		t.Fatalf("error = %v, want no voice selected", err)
	}
}

// TestSynthesizeServerErrorCarriesBody checks non-success responses.
func TestSynthesizeServerErrorCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "speaker not found", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := NewClient(0, nil).Synthesize(context.Background(), server.URL, Request{Text: "hi", VoiceID: "ghost"})
	if !errors.Is(err, domain.ErrServer) {
		t.Fatalf("error = %v, want server error", err)
	}
	var typed *domain.Error
	if !errors.As(err, &typed) {
		t.Fatal("expected *domain.Error")
	}
	if typed.Message != "speaker not found" || typed.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("error = %+v", typed)
	}
}

// TestSynthesizeConnectionError checks unreachable hosts.
func TestSynthesizeConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(0, nil).Synthesize(context.Background(), url, Request{Text: "hi", VoiceID: "v"})
	if !errors.Is(err, domain.ErrConnection) {
		t.Fatalf("error = %v, want connection error", err)
	}
}

// TestCatalogEndpoints verifies speaker preview URLs and language ordering.
func TestCatalogEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/speakers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"name":"Ana","voice_id":"ana","preview_url":"/sample/ana.wav"},
			{"name":"Bob","voice_id":"bob","preview_url":"https://cdn.example/bob.wav"},
			{"name":"Cy","voice_id":"cy"}
		]`))
	})
	mux.HandleFunc("/languages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"languages":{"Polish":"pl","English":"en","Arabic":"ar"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(0, nil)
	voices, err := client.Speakers(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Speakers() error = %v", err)
	}
	if len(voices) != 3 {
		t.Fatalf("voices = %d, want 3", len(voices))
	}
	if voices[0].PreviewURL != server.URL+"/sample/ana.wav" {
		t.Fatalf("relative preview url = %q", voices[0].PreviewURL)
	}
	if voices[1].PreviewURL != "https://cdn.example/bob.wav" {
		t.Fatalf("absolute preview url = %q", voices[1].PreviewURL)
	}
	if voices[2].PreviewURL != "" {
		t.Fatalf("missing preview url = %q", voices[2].PreviewURL)
	}

	langs, err := client.Languages(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Languages() error = %v", err)
	}
	names := langs.Names()
	if len(names) != 3 || names[0] != "Polish" || names[1] != "English" || names[2] != "Arabic" {
		t.Fatalf("language order = %v", names)
	}
}

// TestLanguagesRejectsMalformedBody checks decode failures map to server errors.
func TestLanguagesRejectsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"languages":["en"]}`))
	}))
	defer server.Close()

	if _, err := NewClient(0, nil).Languages(context.Background(), server.URL); !errors.Is(err, domain.ErrServer) {
		t.Fatalf("error = %v, want server error", err)
	}
}

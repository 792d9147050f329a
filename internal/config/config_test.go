package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", "")
	t.Setenv("ICE_SERVERS_JSON", "")
	t.Setenv("TTS_PROVIDER", "")

	cfg := Load()
	if cfg.HTTPAddress != ":8080" {
		t.Fatalf("expected default http address, got %q", cfg.HTTPAddress)
	}
	if cfg.ICEServersJSON == "" {
		t.Fatalf("expected default ice servers json")
	}
	if cfg.TTSProvider != "elevenlabs" {
		t.Fatalf("expected default tts provider, got %q", cfg.TTSProvider)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9999")
	t.Setenv("TTS_PROVIDER", "deepgram")
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_ASSISTANT_ID", "asst_1")
	t.Setenv("RESULT_WEBHOOK_URL", "https://hooks.example/result")
	t.Setenv("WS_AUTH_PASSWORD", "secret")

	cfg := Load()
	if cfg.HTTPAddress != ":9999" {
		t.Fatalf("http address: %q", cfg.HTTPAddress)
	}
	if cfg.TTSProvider != "deepgram" || cfg.DeepgramKey != "dg-key" {
		t.Fatalf("tts config: %+v", cfg)
	}
	if cfg.OpenAIKey != "sk-test" || cfg.OpenAIAssistantID != "asst_1" {
		t.Fatalf("openai config: %+v", cfg)
	}
	if cfg.ResultWebhookURL != "https://hooks.example/result" {
		t.Fatalf("result webhook: %q", cfg.ResultWebhookURL)
	}
	if cfg.AuthPassword != "secret" {
		t.Fatalf("auth password: %q", cfg.AuthPassword)
	}
}

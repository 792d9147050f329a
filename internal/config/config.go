package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	OpenAIKey         string
	OpenAIAssistantID string

	TTSProvider       string // "elevenlabs" (default) or "deepgram"
	ElevenLabsKey     string
	ElevenLabsVoiceID string
	DeepgramKey       string
	DeepgramModel     string

	ResultWebhookURL string
	PhoneWebhookURL  string

	AutomationBaseURL       string
	AutomationSigningSecret string
	PDFConvertURL           string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	ICEServersJSON string
	AuthPassword   string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - transcription and the interviewer will not work")
	}
	assistantID := os.Getenv("OPENAI_ASSISTANT_ID")
	if assistantID == "" {
		log.Println("Warning: OPENAI_ASSISTANT_ID not set - the interviewer will not work")
	}

	provider := os.Getenv("TTS_PROVIDER")
	if provider == "" {
		provider = "elevenlabs"
	}
	elevenKey := os.Getenv("ELEVENLABS_API_KEY")
	voiceID := os.Getenv("ELEVENLABS_VOICE_ID")
	if provider == "elevenlabs" && (elevenKey == "" || voiceID == "") {
		log.Println("Warning: ELEVENLABS_API_KEY/ELEVENLABS_VOICE_ID not set - speech synthesis will not work")
	}
	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if provider == "deepgram" && deepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - speech synthesis will not work")
	}

	resultURL := os.Getenv("RESULT_WEBHOOK_URL")
	if resultURL == "" {
		log.Println("Warning: RESULT_WEBHOOK_URL not set - transcripts cannot be delivered")
	}

	ice := os.Getenv("ICE_SERVERS_JSON")
	if ice == "" {
		ice = `[{"urls":["stun:stun.l.google.com:19302"]}]`
	}

	log.Printf("config: HTTP_ADDRESS=%s TTS_PROVIDER=%s", addr, provider)
	return Config{
		HTTPAddress:             addr,
		OpenAIKey:               openAIKey,
		OpenAIAssistantID:       assistantID,
		TTSProvider:             provider,
		ElevenLabsKey:           elevenKey,
		ElevenLabsVoiceID:       voiceID,
		DeepgramKey:             deepgramKey,
		DeepgramModel:           os.Getenv("DEEPGRAM_TTS_MODEL"),
		ResultWebhookURL:        resultURL,
		PhoneWebhookURL:         os.Getenv("PHONE_WEBHOOK_URL"),
		AutomationBaseURL:       os.Getenv("AUTOMATION_BASE_URL"),
		AutomationSigningSecret: os.Getenv("AUTOMATION_SIGNING_SECRET"),
		PDFConvertURL:           os.Getenv("PDF_CONVERT_URL"),
		SupabaseURL:             os.Getenv("SUPABASE_URL"),
		SupabaseKey:             os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:          os.Getenv("SUPABASE_BUCKET"),
		TwilioAccountSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:         os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:        os.Getenv("TWILIO_FROM_NUMBER"),
		ICEServersJSON:          ice,
		AuthPassword:            os.Getenv("WS_AUTH_PASSWORD"),
	}
}

// Package httpserver wires the interview and operator APIs onto one router.
package httpserver

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/srlee0408/AIInterview/internal/assistant"
	"github.com/srlee0408/AIInterview/internal/config"
	"github.com/srlee0408/AIInterview/internal/interview"
	"github.com/srlee0408/AIInterview/internal/media"
	appmw "github.com/srlee0408/AIInterview/internal/middleware"
	"github.com/srlee0408/AIInterview/internal/notify"
	"github.com/srlee0408/AIInterview/internal/resume"
	"github.com/srlee0408/AIInterview/internal/storage"
	"github.com/srlee0408/AIInterview/internal/transcribe"
	"github.com/srlee0408/AIInterview/internal/tts"
	"github.com/srlee0408/AIInterview/internal/webhook"
)

// Server bundles the HTTP router and its dependencies.
type Server struct {
	Router  http.Handler
	resumes *resume.Service
	intake  *webhook.Client
}

// New constructs the server with all routes wired from config.
func New(cfg config.Config) *Server {
	e := newRouter()

	var store storage.Storage
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		sb, err := storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
		if err != nil {
			log.Printf("httpserver: storage disabled: %v", err)
		} else {
			store = sb
		}
	}

	hooks := webhook.NewClient(cfg.ResultWebhookURL, cfg.PhoneWebhookURL)

	deps := media.Deps{
		Transcriber: transcribe.NewWhisperClient(cfg.OpenAIKey),
		Assistant:   assistant.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIAssistantID),
		Synthesizer: newSynthesizer(cfg),
		Submitter:   hooks,
		Store:       store,
		Notifier: notify.NewSMS(notify.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
		}),
		ICEServersJSON: cfg.ICEServersJSON,
		AuthPassword:   cfg.AuthPassword,
	}
	interviewWS := media.NewHandler(deps)

	resumes := resume.NewService(cfg.AutomationBaseURL, cfg.PDFConvertURL, store)

	s := &Server{Router: e, resumes: resumes, intake: hooks}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/interview", func(c echo.Context) error {
		interviewWS.ServeWebSocket(c.Response(), c.Request())
		return nil
	})

	e.POST("/phone", s.handlePhoneIntake)

	e.GET("/api/submissions", s.handleListSubmissions)
	e.GET("/api/submissions/:id", s.handleGetResume)
	e.PUT("/api/submissions/:id/resume", s.handleUpdateResume)
	e.POST("/api/submissions/:id/export", s.handleExportPDF)

	e.POST("/hooks/automation", s.handleAutomationCallback,
		appmw.WebhookAuth(func() string { return cfg.AutomationSigningSecret }))

	return s
}

// newSynthesizer picks the configured TTS provider; both speak the same
// 48kHz PCM contract.
func newSynthesizer(cfg config.Config) interview.Synthesizer {
	if cfg.TTSProvider == "deepgram" {
		return tts.NewDeepgramClient(cfg.DeepgramKey, cfg.DeepgramModel)
	}
	return tts.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
}

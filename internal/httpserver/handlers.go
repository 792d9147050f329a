package httpserver

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type phoneRequest struct {
	Phone string `json:"phone"`
}

// handlePhoneIntake records the candidate's phone number before the
// interview starts.
func (s *Server) handlePhoneIntake(c echo.Context) error {
	var req phoneRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "phone required"})
	}
	if err := s.intake.SubmitPhone(c.Request().Context(), phone); err != nil {
		log.Printf("phone intake failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "intake failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSubmissions(c echo.Context) error {
	subs, err := s.resumes.ListSubmissions(c.Request().Context())
	if err != nil {
		log.Printf("list submissions failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream failure"})
	}
	return c.JSON(http.StatusOK, subs)
}

func (s *Server) handleGetResume(c echo.Context) error {
	sub, err := s.resumes.GetResume(c.Request().Context(), c.Param("id"))
	if err != nil {
		log.Printf("get resume failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream failure"})
	}
	return c.JSON(http.StatusOK, sub)
}

type resumeUpdateRequest struct {
	ResumeHTML string `json:"resumeHtml"`
}

func (s *Server) handleUpdateResume(c echo.Context) error {
	var req resumeUpdateRequest
	if err := c.Bind(&req); err != nil || req.ResumeHTML == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "resumeHtml required"})
	}
	if err := s.resumes.UpdateResume(c.Request().Context(), c.Param("id"), req.ResumeHTML); err != nil {
		log.Printf("update resume failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream failure"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExportPDF(c echo.Context) error {
	key, err := s.resumes.ExportPDF(c.Request().Context(), c.Param("id"))
	if err != nil {
		log.Printf("pdf export failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "export failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"objectKey": key})
}

// handleAutomationCallback acknowledges signed events from the automation
// service (résumé generation finished, submission status changed). The
// operator screen polls the listing, so an ack is all that is needed.
func (s *Server) handleAutomationCallback(c echo.Context) error {
	var event struct {
		Type         string `json:"type"`
		SubmissionID string `json:"submissionId"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&event); err != nil {
		return c.String(http.StatusBadRequest, "invalid event")
	}
	log.Printf("automation event: type=%s submission=%s", event.Type, event.SubmissionID)
	return c.String(http.StatusOK, "OK")
}

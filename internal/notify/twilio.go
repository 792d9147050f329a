// Package notify sends the candidate a completion notice after their
// transcript has been delivered.
package notify

import (
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMS sends completion notices through Twilio. A zero-config notifier is
// disabled and silently skips sends.
type SMS struct {
	client *twilio.RestClient
	from   string
}

type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func NewSMS(cfg Config) *SMS {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return &SMS{}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &SMS{client: client, from: cfg.FromNumber}
}

// Enabled reports whether the notifier is configured.
func (s *SMS) Enabled() bool { return s.client != nil }

// InterviewComplete texts the candidate that their interview was received.
func (s *SMS) InterviewComplete(phone string) error {
	if s.client == nil {
		log.Printf("notify: sms disabled, skipping notice to %s", phone)
		return nil
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.from)
	params.SetBody("면접이 접수되었습니다. 결과는 검토 후 안내드리겠습니다. 수고하셨습니다.")
	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("notify: send sms: %w", err)
	}
	return nil
}

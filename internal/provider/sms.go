package provider

import (
	"context"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// NewSMSSender picks the concrete sender: Twilio when configured, otherwise
// a log stand-in so local runs still show what would have gone out.
func NewSMSSender(cfg TwilioConfig) SMSSender {
	if !cfg.Configured() {
		return logSMSSender{}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &twilioSender{client: client, from: cfg.FromNumber}
}

type twilioSender struct {
	client *twilio.RestClient
	from   string
}

func (s *twilioSender) Send(ctx context.Context, to, body string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)
	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("%w: twilio send: %v", ErrUnavailable, err)
	}
	return nil
}

type logSMSSender struct{}

func (logSMSSender) Send(ctx context.Context, to, body string) error {
	log.Printf("sms stub to=%s body=%q", to, body)
	return nil
}

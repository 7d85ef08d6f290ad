package mfa

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Twilio message states that end polling.
const (
	twilioStatusDelivered   = "delivered"
	twilioStatusFailed      = "failed"
	twilioStatusUndelivered = "undelivered"
	twilioStatusCanceled    = "canceled"
)

// messageAPI is the part of the Twilio REST API used by TwilioBackend.
type messageAPI interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
	FetchMessage(sid string, params *twilioapi.FetchMessageParams) (*twilioapi.ApiV2010Message, error)
}

// TwilioBackend sends codes as SMS through the Twilio Messages API and waits
// until the message is delivered or the delivery timeout passes.
type TwilioBackend struct {
	cfg          config.TwilioConfig
	api          messageAPI
	breaker      *gobreaker.CircuitBreaker[twilioMessage]
	pollInterval time.Duration
}

type twilioMessage struct {
	SID          string
	Status       string
	ErrorMessage string
}

func newTwilioMessage(msg *twilioapi.ApiV2010Message) (twilioMessage, error) {
	if msg == nil || msg.Sid == nil || *msg.Sid == "" {
		return twilioMessage{}, errors.New("twilio: response without sid")
	}
	out := twilioMessage{SID: *msg.Sid}
	if msg.Status != nil {
		out.Status = *msg.Status
	}
	if msg.ErrorMessage != nil {
		out.ErrorMessage = *msg.ErrorMessage
	}
	return out, nil
}

// NewTwilioBackend constructs a TwilioBackend authenticated with the account
// sid and auth token of cfg.
func NewTwilioBackend(cfg config.TwilioConfig) *TwilioBackend {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioBackend(cfg, client.Api)
}

func newTwilioBackend(cfg config.TwilioConfig, api messageAPI) *TwilioBackend {
	breaker := gobreaker.NewCircuitBreaker[twilioMessage](gobreaker.Settings{
		Name:        "twilio",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	})
	return &TwilioBackend{cfg: cfg, api: api, breaker: breaker, pollInterval: time.Second}
}

// Send implements Backend.
func (b *TwilioBackend) Send(ctx context.Context, method models.MFAMethod, code string) error {
	if !b.cfg.Configured() {
		return notConfigured(CodeBackendNotConfigured, "sms backend is not configured")
	}
	to := strings.TrimSpace(method.Parameter)
	if to == "" {
		return deliveryFailed(CodeFailedStatus, "sms method has no phone number")
	}

	msg, errSend := b.breaker.Execute(func() (twilioMessage, error) {
		return b.createMessage(to, "Pumpwood verification code: "+code)
	})
	if errSend != nil {
		log.WithError(errSend).WithField("method_id", method.ID).Warn("sms send failed")
		return deliveryFailed(CodeFailedStatus, "sms could not be sent")
	}
	return b.awaitDelivery(ctx, msg)
}

// awaitDelivery polls the message until a final state or the delivery timeout.
func (b *TwilioBackend) awaitDelivery(ctx context.Context, msg twilioMessage) error {
	deadline := time.Now().Add(b.cfg.DeliveryTimeout())
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		switch msg.Status {
		case twilioStatusDelivered:
			return nil
		case twilioStatusFailed, twilioStatusUndelivered, twilioStatusCanceled:
			log.WithFields(log.Fields{"sid": msg.SID, "status": msg.Status, "twilio_error": msg.ErrorMessage}).Warn("sms delivery failed")
			return deliveryFailed(CodeFailedStatus, "sms delivery failed with status "+msg.Status)
		}
		if !time.Now().Before(deadline) {
			return deliveryFailed(CodeDeliveryTimeout, "sms was not delivered in time")
		}
		select {
		case <-ctx.Done():
			return deliveryFailed(CodeDeliveryTimeout, "sms delivery was cancelled")
		case <-ticker.C:
		}
		next, errFetch := b.fetchMessage(msg.SID)
		if errFetch != nil {
			log.WithError(errFetch).WithField("sid", msg.SID).Warn("sms status poll failed")
			continue
		}
		msg = next
	}
}

func (b *TwilioBackend) createMessage(to, body string) (twilioMessage, error) {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(b.cfg.SenderPhoneNumber)
	params.SetBody(body)
	resp, errCreate := b.api.CreateMessage(params)
	if errCreate != nil {
		return twilioMessage{}, errCreate
	}
	return newTwilioMessage(resp)
}

func (b *TwilioBackend) fetchMessage(sid string) (twilioMessage, error) {
	resp, errFetch := b.api.FetchMessage(sid, &twilioapi.FetchMessageParams{})
	if errFetch != nil {
		return twilioMessage{}, errFetch
	}
	return newTwilioMessage(resp)
}

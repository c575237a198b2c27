package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	appconfig "github.com/vetcare/vetclinic-platform/internal/config"
	"github.com/vetcare/vetclinic-platform/internal/notify"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

func TestBuildEmailSenderDefaultsToStub(t *testing.T) {
	logger := logging.New("error")

	sender := buildEmailSender(context.Background(), &appconfig.Config{}, logger)

	assert.IsType(t, &notify.StubEmailSender{}, sender)
}

func TestBuildEmailSenderSendGrid(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{
		EmailProvider:     "sendgrid",
		SendGridAPIKey:    "SG.test",
		SendGridFromEmail: "clinic@example.com",
		SendGridFromName:  "VetCare",
	}

	sender := buildEmailSender(context.Background(), cfg, logger)

	assert.IsType(t, &notify.SendGridSender{}, sender)
}

func TestBuildEmailSenderSendGridMissingKeyFallsBack(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{EmailProvider: "sendgrid"}

	sender := buildEmailSender(context.Background(), cfg, logger)

	assert.IsType(t, &notify.StubEmailSender{}, sender)
}

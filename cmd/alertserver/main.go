// Sentrycam alert server - receives captured evidence, transcodes it to
// mp4 and mails it to the configured recipient.
package main

import (
	"fmt"
	"os"

	"github.com/mkallevig/sentrycam/internal/config"
	"github.com/mkallevig/sentrycam/internal/log"
	"github.com/mkallevig/sentrycam/pkg/alertapi"
	"github.com/mkallevig/sentrycam/pkg/mailer"
	"github.com/mkallevig/sentrycam/pkg/transcode"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}
	log.Init(config.String("LOG_LEVEL", "info"))

	smtpCfg := config.LoadSMTP()
	if smtpCfg.User == "" || smtpCfg.Recipient == "" {
		fmt.Fprintln(os.Stderr, "Error: SMTP_USER and ALERT_RECIPIENT are required")
		fmt.Fprintln(os.Stderr, "Set them in the environment or a .env file")
		os.Exit(1)
	}

	converter := transcode.NewFFmpeg(config.Int("CAMERA_FPS", 15))
	srv := alertapi.NewServer(
		config.String("ALERT_PORT", config.DefaultAlertPort),
		converter,
		mailer.NewSMTP(smtpCfg),
		smtpCfg.Recipient,
	)

	fmt.Printf("📨 Sentrycam alert server on port %s\n",
		config.String("ALERT_PORT", config.DefaultAlertPort))

	if err := srv.Start(); err != nil {
		log.Error("alert server exited", "error", err)
		os.Exit(1)
	}
}

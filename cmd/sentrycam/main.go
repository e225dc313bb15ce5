// Sentrycam monitor - watches a camera feed for human presence and
// delivers rate-limited video-evidence alerts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkallevig/sentrycam/internal/config"
	"github.com/mkallevig/sentrycam/internal/log"
	"github.com/mkallevig/sentrycam/pkg/alert"
	"github.com/mkallevig/sentrycam/pkg/camera"
	"github.com/mkallevig/sentrycam/pkg/capture"
	"github.com/mkallevig/sentrycam/pkg/mailer"
	"github.com/mkallevig/sentrycam/pkg/monitor"
	"github.com/mkallevig/sentrycam/pkg/pose"
	"github.com/mkallevig/sentrycam/pkg/transcode"
	"github.com/mkallevig/sentrycam/pkg/web"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}
	log.Init(config.String("LOG_LEVEL", "info"))

	camCfg := camera.DefaultConfig()
	camCfg.DeviceID = config.Int("CAMERA_DEVICE", 0)
	camCfg.Width = config.Int("CAMERA_WIDTH", camCfg.Width)
	camCfg.Height = config.Int("CAMERA_HEIGHT", camCfg.Height)
	camCfg.Framerate = config.Int("CAMERA_FPS", camCfg.Framerate)

	source, err := camera.Open(camCfg)
	if err != nil {
		log.Error("camera unavailable", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	poseCfg := pose.DefaultConfig()
	poseCfg.Model = config.String("POSE_MODEL", poseCfg.Model)
	poseCfg.ModelPath = config.String("POSE_MODEL_PATH", poseCfg.ModelPath)
	poseCfg.GraphConfig = config.String("POSE_GRAPH_CONFIG", "")
	poseCfg.ScoreThresh = config.Float("POSE_SCORE_THRESH", config.DefaultScoreThresh)
	poseCfg.MinKeypoints = config.Int("POSE_MIN_KEYPOINTS", config.DefaultMinKeypoints)

	estimator, err := pose.New(poseCfg)
	if err != nil {
		log.Error("pose model load failed", "error", err)
		os.Exit(1)
	}
	defer estimator.Close()
	log.Info("pose model loaded", "model", poseCfg.Model)

	deliverer, err := buildDeliverer()
	if err != nil {
		log.Error("delivery configuration invalid", "error", err)
		os.Exit(1)
	}

	buffer := capture.NewBuffer(
		time.Duration(config.Int("CAPTURE_SECONDS", config.DefaultCaptureSecs)) * time.Second)
	encoder := transcode.EvidenceEncoder{FF: transcode.NewFFmpeg(camCfg.Framerate)}

	dashboard := web.NewServer(config.String("MONITOR_PORT", config.DefaultMonitorPort), nil)
	controller := alert.NewController(alert.Config{
		Cooldown:  config.Duration("ALERT_COOLDOWN", config.DefaultCooldown),
		Recipient: config.String("ALERT_RECIPIENT", ""),
	}, buffer, encoder, deliverer, dashboard)
	dashboard.SetStatusProvider(controller)
	dashboard.StartAsync()

	classifier := pose.NewClassifier(poseCfg.ScoreThresh, poseCfg.MinKeypoints)
	interval := time.Second / time.Duration(camCfg.Framerate)
	mon := monitor.New(source, estimator, classifier, controller, dashboard, interval)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	fmt.Printf("🎥 Sentrycam monitor\n")
	fmt.Printf("   Camera: device %d (%dx%d @ %d fps)\n",
		camCfg.DeviceID, camCfg.Width, camCfg.Height, camCfg.Framerate)
	fmt.Printf("   Dashboard: http://localhost:%s\n", config.String("MONITOR_PORT", config.DefaultMonitorPort))

	if err := mon.Run(ctx); err != nil {
		log.Error("monitor exited", "error", err)
		os.Exit(1)
	}
	dashboard.Shutdown()
}

// buildDeliverer picks the delivery transport from ALERT_MODE.
func buildDeliverer() (alert.Deliverer, error) {
	switch mode := config.String("ALERT_MODE", "uplink"); mode {
	case "uplink":
		endpoint := config.String("ALERT_ENDPOINT",
			"http://localhost:"+config.DefaultAlertPort+"/send-email")
		return mailer.NewUplink(endpoint), nil
	case "smtp":
		return mailer.NewSMTP(config.LoadSMTP()), nil
	case "emailjs":
		return mailer.NewEmailJS(
			config.String("EMAILJS_SERVICE_ID", ""),
			config.String("EMAILJS_TEMPLATE_ID", ""),
			config.String("EMAILJS_USER_ID", ""),
		), nil
	default:
		return nil, fmt.Errorf("unknown ALERT_MODE: %q", mode)
	}
}

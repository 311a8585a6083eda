package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kmmndr/motion_watch/internal/config"
	"github.com/kmmndr/motion_watch/internal/frame"
	"github.com/kmmndr/motion_watch/internal/httpapi"
	"github.com/kmmndr/motion_watch/internal/logging"
	"github.com/kmmndr/motion_watch/internal/metrics"
	"github.com/kmmndr/motion_watch/internal/motion"
	"github.com/kmmndr/motion_watch/internal/notify"
	"github.com/kmmndr/motion_watch/internal/overlay"
	"github.com/kmmndr/motion_watch/internal/record"
	"github.com/kmmndr/motion_watch/internal/video"
)

func main() {
	if err := run(); err != nil {
		slog.Error("motion-watch stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		source       string
		out          string
		headless     bool
		noShock      bool
		logLevel     string
		httpAddr     string
		mqttBroker   string
		kafkaBrokers string
	)

	flag.StringVar(&configPath, "config", "", "YAML configuration file")
	flag.StringVar(&source, "source", "", "Video file, stream URL or camera index")
	flag.StringVar(&out, "out", "", "Root directory of the recordings")
	flag.BoolVar(&headless, "headless", false, "Disable the preview windows")
	flag.BoolVar(&noShock, "no-shock", false, "Disable whole frame shock detection")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flag.StringVar(&httpAddr, "http", "", "Status and metrics listen address, e.g. :9090")
	flag.StringVar(&mqttBroker, "mqtt", "", "MQTT broker receiving activation reports")
	flag.StringVar(&kafkaBrokers, "kafka", "", "Comma separated Kafka brokers receiving activation reports")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if flag.NArg() > 1 {
		return fmt.Errorf("unexpected arguments: %v", flag.Args()[1:])
	}
	if flag.NArg() == 1 {
		cfg.Source = flag.Arg(0)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source = source
		case "out":
			cfg.Output.Root = out
		case "headless":
			cfg.Display.Headless = headless
		case "no-shock":
			cfg.Detection.Shock = !noShock
		case "log-level":
			cfg.Log.Level = logLevel
		case "http":
			cfg.HTTP.Addr = httpAddr
		case "mqtt":
			cfg.MQTT.Broker = mqttBroker
		case "kafka":
			cfg.Kafka.Brokers = config.SplitList(kafkaBrokers)
		}
	})

	warnings := cfg.Validate()
	level, _ := logging.ParseLevel(cfg.Log.Level)
	logger := logging.Setup(level)
	for _, w := range warnings {
		logger.Warn(w)
	}

	stream, err := video.Open(cfg.Source)
	if err != nil {
		return err
	}
	defer stream.Close()

	name := stream.Name()
	fps := motion.EffectiveFPS(stream.Fps(), cfg.Detection.DefaultFPS)
	hold := cfg.HoldFrames(stream.Fps())
	width, height := stream.FrameSize()

	scorer := frame.NewScorer(cfg.Detection.DiffThreshold, cfg.Detection.Shock)
	defer scorer.Close()

	logger.Info("source opened",
		"source", cfg.Source,
		"fps", stream.Fps(),
		"width", width,
		"height", height,
		"hold_frames", hold,
		"shock_detection", scorer.WholeFrame())

	layout := record.Layout{Root: cfg.Output.Root, MotionDir: cfg.Output.MotionDir, ShockDir: cfg.Output.ShockDir}
	if err := layout.Prepare(); err != nil {
		return err
	}
	recorder := record.NewFileRecorder(layout, name, fps, cfg.Output.Codec, cfg.Output.Extension)

	preprocessing := frame.Preprocessing{Scale: cfg.Detection.Scale, BlurKernel: cfg.Detection.BlurKernel}
	analyzer := frame.NewFrameBuffer(preprocessing, scorer, cfg.Detection.ROIFraction, logger)
	defer analyzer.Close()

	m := metrics.NewMetrics()
	tracker := httpapi.NewTracker(name, fps)
	hub := httpapi.NewHub(name, fps, logger)
	notifier := notify.NewNotifier(name, fps, publishers(cfg, logger), m, logger)
	defer notifier.Close()

	listeners := motion.Listeners{m, tracker, hub, notifier, &activationLog{stream: stream, logger: logger}}
	detector := motion.NewDetector(hold, recorder, listeners, logger)

	var display motion.Display = overlay.Headless{}
	if !cfg.Display.Headless {
		windows := overlay.NewWindows()
		defer windows.Close()
		display = windows
	}

	if cfg.HTTP.Addr != "" {
		srv := httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewRouter(tracker, hub, m), logger)
		srv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("unable to stop status server", "error", err)
			}
		}()
	}

	sensor := motion.NewSensor(motion.SensorConfig{
		Source:     stream,
		Analyzer:   analyzer,
		Classifier: motion.NewClassifier(cfg.Thresholds()),
		Detector:   detector,
		Display:    display,
		Listener:   listeners,
		Logger:     logger,
		IdleSkip:   cfg.Detection.IdleSkip,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sensor.Run(ctx)
	logger.Info("detection finished", "frames", sensor.FrameIndex(), "analyzed", sensor.Analyzed())
	return err
}

// publishers connects the configured brokers. A broker that cannot be reached
// is logged and left out.
func publishers(cfg *config.Config, logger *slog.Logger) []notify.Publisher {
	var out []notify.Publisher

	if cfg.MQTT.Broker != "" {
		p, err := notify.NewMQTTPublisher(notify.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		}, logger)
		if err != nil {
			logger.Warn("mqtt notifications disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			out = append(out, p)
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		p, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Warn("kafka notifications disabled", "brokers", cfg.Kafka.Brokers, "error", err)
		} else {
			out = append(out, p)
		}
	}

	return out
}

// activationLog prints activation boundaries in stream time.
type activationLog struct {
	motion.NopListener
	stream *video.Stream
	logger *slog.Logger
}

func (l *activationLog) ActivationStarted(a motion.Activation) {
	l.logger.Info("activation started",
		"category", a.Category,
		"severity", a.PeakSeverity,
		"at", fmt.Sprintf("%.2fs", l.stream.TimeAtFrame(a.StartFrame)))
}

func (l *activationLog) ActivationEnded(a motion.Activation) {
	l.logger.Info("activation ended",
		"category", a.Category,
		"peak", a.PeakSeverity,
		"shocks", a.Shocks,
		"at", fmt.Sprintf("%.2fs", l.stream.TimeAtFrame(a.EndFrame)),
		"reason", a.EndReason,
		"recording", a.RecordingPath)
}

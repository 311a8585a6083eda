package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kmmndr/motion_watch/internal/motion"
)

const (
	EnvPrefix = "MOTIONWATCH_"

	DefaultSource     = "./input/1.mp4"
	DefaultScale      = 0.5
	DefaultBlurKernel = 3
	DefaultDiff       = 30
	DefaultMQTTTopic  = "motionwatch/activations"
	DefaultKafkaTopic = "motionwatch.activations"
)

type OutputConfig struct {
	Root      string `yaml:"root"`
	MotionDir string `yaml:"motion_dir"`
	ShockDir  string `yaml:"shock_dir"`
	Codec     string `yaml:"codec"`
	Extension string `yaml:"extension"`
}

type DetectionConfig struct {
	Scale           float64 `yaml:"scale"`
	BlurKernel      int     `yaml:"blur_ksize"`
	DiffThreshold   float64 `yaml:"diff_threshold"`
	ROIFraction     float64 `yaml:"roi_fraction"`
	MotionRatio     float64 `yaml:"motion_ratio"`
	HugeMotionRatio float64 `yaml:"huge_motion_ratio"`
	ShockRatio      float64 `yaml:"shock_ratio"`
	Shock           bool    `yaml:"shock_detection"`
	IdleSkip        int     `yaml:"idle_skip"`
	HoldSeconds     float64 `yaml:"hold_seconds"`
	DefaultFPS      float64 `yaml:"default_fps"`
}

type DisplayConfig struct {
	Headless bool `yaml:"headless"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Config struct {
	Source    string          `yaml:"source"`
	Output    OutputConfig    `yaml:"output"`
	Detection DetectionConfig `yaml:"detection"`
	Display   DisplayConfig   `yaml:"display"`
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Kafka     KafkaConfig     `yaml:"kafka"`
}

func Default() *Config {
	return &Config{
		Source: DefaultSource,
		Output: OutputConfig{
			Root:      ".",
			MotionDir: "recorded_motion",
			ShockDir:  "recorded_shock",
			Codec:     "mp4v",
			Extension: "mp4",
		},
		Detection: DetectionConfig{
			Scale:           DefaultScale,
			BlurKernel:      DefaultBlurKernel,
			DiffThreshold:   DefaultDiff,
			ROIFraction:     motion.DefaultROIFraction,
			MotionRatio:     motion.DefaultMotionRatio,
			HugeMotionRatio: motion.DefaultHugeMotionRatio,
			ShockRatio:      motion.DefaultShockRatio,
			Shock:           true,
			IdleSkip:        motion.DefaultIdleSkip,
			HoldSeconds:     motion.DefaultHoldSeconds,
			DefaultFPS:      motion.DefaultFPS,
		},
		Log: LogConfig{Level: "info"},
		MQTT: MQTTConfig{
			Topic:    DefaultMQTTTopic,
			ClientID: "motion-watch",
		},
		Kafka: KafkaConfig{Topic: DefaultKafkaTopic},
	}
}

// Load layers the YAML file at path (optional) and the environment over the
// defaults. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("SOURCE"); ok {
		c.Source = v
	}
	if v, ok := get("OUTPUT_DIR"); ok {
		c.Output.Root = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("HTTP_ADDR"); ok {
		c.HTTP.Addr = v
	}
	if v, ok := get("MQTT_BROKER"); ok {
		c.MQTT.Broker = v
	}
	if v, ok := get("MQTT_TOPIC"); ok {
		c.MQTT.Topic = v
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = SplitList(v)
	}
	if v, ok := get("KAFKA_TOPIC"); ok {
		c.Kafka.Topic = v
	}
	if v, ok := get("HEADLESS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sHEADLESS: %w", EnvPrefix, err)
		}
		c.Display.Headless = b
	}
	if v, ok := get("SHOCK_DETECTION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSHOCK_DETECTION: %w", EnvPrefix, err)
		}
		c.Detection.Shock = b
	}

	return nil
}

// Validate replaces out-of-range values by their defaults and describes
// every replacement.
func (c *Config) Validate() []string {
	var warnings []string
	def := Default()

	invalid := func(field string, value any, fallback any) {
		warnings = append(warnings, fmt.Sprintf("invalid %s %v, using %v", field, value, fallback))
	}

	d := &c.Detection
	if d.Scale <= 0 || d.Scale > 1 {
		invalid("detection.scale", d.Scale, def.Detection.Scale)
		d.Scale = def.Detection.Scale
	}
	if d.BlurKernel < 0 {
		invalid("detection.blur_ksize", d.BlurKernel, def.Detection.BlurKernel)
		d.BlurKernel = def.Detection.BlurKernel
	} else if d.BlurKernel > 1 && d.BlurKernel%2 == 0 {
		invalid("detection.blur_ksize", d.BlurKernel, d.BlurKernel+1)
		d.BlurKernel++
	}
	if d.DiffThreshold < 0 || d.DiffThreshold >= 255 {
		invalid("detection.diff_threshold", d.DiffThreshold, def.Detection.DiffThreshold)
		d.DiffThreshold = def.Detection.DiffThreshold
	}
	if d.ROIFraction <= 0 || d.ROIFraction > 1 {
		invalid("detection.roi_fraction", d.ROIFraction, def.Detection.ROIFraction)
		d.ROIFraction = def.Detection.ROIFraction
	}
	if !validRatio(d.MotionRatio) {
		invalid("detection.motion_ratio", d.MotionRatio, def.Detection.MotionRatio)
		d.MotionRatio = def.Detection.MotionRatio
	}
	if !validRatio(d.HugeMotionRatio) || d.HugeMotionRatio <= d.MotionRatio {
		fallback := def.Detection.HugeMotionRatio
		if fallback <= d.MotionRatio {
			fallback = d.MotionRatio
		}
		invalid("detection.huge_motion_ratio", d.HugeMotionRatio, fallback)
		d.HugeMotionRatio = fallback
	}
	if !validRatio(d.ShockRatio) {
		invalid("detection.shock_ratio", d.ShockRatio, def.Detection.ShockRatio)
		d.ShockRatio = def.Detection.ShockRatio
	}
	if d.IdleSkip < 0 {
		invalid("detection.idle_skip", d.IdleSkip, def.Detection.IdleSkip)
		d.IdleSkip = def.Detection.IdleSkip
	}
	if d.HoldSeconds <= 0 {
		invalid("detection.hold_seconds", d.HoldSeconds, def.Detection.HoldSeconds)
		d.HoldSeconds = def.Detection.HoldSeconds
	}
	if d.DefaultFPS <= 0 {
		invalid("detection.default_fps", d.DefaultFPS, def.Detection.DefaultFPS)
		d.DefaultFPS = def.Detection.DefaultFPS
	}

	if len(c.Output.Codec) != 4 {
		invalid("output.codec", c.Output.Codec, def.Output.Codec)
		c.Output.Codec = def.Output.Codec
	}
	c.Output.Extension = strings.TrimPrefix(c.Output.Extension, ".")
	if c.Output.Extension == "" {
		invalid("output.extension", `""`, def.Output.Extension)
		c.Output.Extension = def.Output.Extension
	}
	if c.Output.MotionDir == "" {
		c.Output.MotionDir = def.Output.MotionDir
	}
	if c.Output.ShockDir == "" {
		c.Output.ShockDir = def.Output.ShockDir
	}
	if c.Output.MotionDir == c.Output.ShockDir {
		invalid("output.shock_dir", c.Output.ShockDir, def.Output.ShockDir)
		c.Output.ShockDir = def.Output.ShockDir
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		invalid("log.level", c.Log.Level, def.Log.Level)
		c.Log.Level = def.Log.Level
	}

	if c.MQTT.QoS > 2 {
		invalid("mqtt.qos", c.MQTT.QoS, 0)
		c.MQTT.QoS = 0
	}

	return warnings
}

func (c *Config) Thresholds() motion.Thresholds {
	return motion.Thresholds{
		Motion:     c.Detection.MotionRatio,
		HugeMotion: c.Detection.HugeMotionRatio,
		Shock:      c.Detection.ShockRatio,
	}
}

// HoldFrames is the hysteresis window in frames for a source reporting fps.
func (c *Config) HoldFrames(fps float64) int {
	return motion.HoldFrames(motion.EffectiveFPS(fps, c.Detection.DefaultFPS), c.Detection.HoldSeconds)
}

func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validRatio(r float64) bool {
	return r > 0 && r < 1
}

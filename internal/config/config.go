package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	ServiceName string           `yaml:"service_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Recordings  RecordingsConfig `yaml:"recordings"`
	Storage     StorageConfig    `yaml:"storage"`
	Transcode   TranscodeConfig  `yaml:"transcode"`
	Speech      SpeechConfig     `yaml:"speech"`
	Prosody     AnalyzerConfig   `yaml:"prosody"`
	Summary     AnalyzerConfig   `yaml:"summary"`
	Worker      WorkerConfig     `yaml:"worker"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type RecordingsConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig selects the object store holding uploaded audio.
// Mode "s3" talks to S3 or any compatible endpoint; mode "local"
// keeps files on disk under Directory.
type StorageConfig struct {
	Mode      string `yaml:"mode"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PublicURL string `yaml:"public_url"`
	Directory string `yaml:"directory"`
}

// TranscodeConfig controls discovery of the external transcoding tool.
// ToolPath, when set, bypasses discovery entirely.
type TranscodeConfig struct {
	ToolPath   string   `yaml:"tool_path"`
	ToolName   string   `yaml:"tool_name"`
	SearchDirs []string `yaml:"search_dirs"`
}

type SpeechConfig struct {
	Mode       string `yaml:"mode"` // mock, exec
	Command    string `yaml:"command"`
	Key        string `yaml:"key"`
	Region     string `yaml:"region"`
	Language   string `yaml:"language"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type AnalyzerConfig struct {
	Mode    string `yaml:"mode"` // mock, exec
	Command string `yaml:"command"`
}

type WorkerConfig struct {
	Concurrency  int `yaml:"concurrency"`
	JobTimeoutMS int `yaml:"job_timeout_ms"`
}

func Default() Config {
	return Config{
		ServiceName: "lingua-core",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Recordings: RecordingsConfig{
			Path: "./data/lingua-recordings.db",
		},
		Storage: StorageConfig{
			Mode:      "local",
			Directory: "./data/objects",
			PublicURL: "http://localhost:8080/objects",
		},
		Transcode: TranscodeConfig{
			ToolName: "ffmpeg",
			SearchDirs: []string{
				"/usr/local/bin",
				"/opt/lingua/bin",
			},
		},
		Speech: SpeechConfig{
			Mode:       "mock",
			Language:   "en-US",
			SampleRate: 16000,
			Channels:   1,
		},
		Prosody: AnalyzerConfig{Mode: "mock"},
		Summary: AnalyzerConfig{Mode: "mock"},
		Worker: WorkerConfig{
			Concurrency:  4,
			JobTimeoutMS: 300000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "LINGUA_SERVICE_NAME")
	overrideString(&cfg.Environment, "LINGUA_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "LINGUA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LINGUA_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "LINGUA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LINGUA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LINGUA_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "LINGUA_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "LINGUA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LINGUA_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "LINGUA_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "LINGUA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LINGUA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LINGUA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LINGUA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LINGUA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LINGUA_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Recordings.Path, "LINGUA_RECORDINGS_PATH")
	overrideString(&cfg.Storage.Mode, "LINGUA_STORAGE_MODE")
	overrideString(&cfg.Storage.Bucket, "LINGUA_STORAGE_BUCKET")
	overrideString(&cfg.Storage.Prefix, "LINGUA_STORAGE_PREFIX")
	overrideString(&cfg.Storage.Region, "LINGUA_STORAGE_REGION")
	overrideString(&cfg.Storage.Endpoint, "LINGUA_STORAGE_ENDPOINT")
	overrideString(&cfg.Storage.PublicURL, "LINGUA_STORAGE_PUBLIC_URL")
	overrideString(&cfg.Storage.Directory, "LINGUA_STORAGE_DIRECTORY")
	overrideString(&cfg.Transcode.ToolPath, "LINGUA_TRANSCODE_TOOL_PATH")
	overrideString(&cfg.Transcode.ToolName, "LINGUA_TRANSCODE_TOOL_NAME")
	overrideStringSlice(&cfg.Transcode.SearchDirs, "LINGUA_TRANSCODE_SEARCH_DIRS")
	overrideString(&cfg.Speech.Mode, "LINGUA_SPEECH_MODE")
	overrideString(&cfg.Speech.Command, "LINGUA_SPEECH_COMMAND")
	overrideString(&cfg.Speech.Key, "LINGUA_SPEECH_KEY")
	overrideString(&cfg.Speech.Region, "LINGUA_SPEECH_REGION")
	overrideString(&cfg.Speech.Language, "LINGUA_SPEECH_LANGUAGE")
	overrideInt(&cfg.Speech.SampleRate, "LINGUA_SPEECH_SAMPLE_RATE")
	overrideInt(&cfg.Speech.Channels, "LINGUA_SPEECH_CHANNELS")
	overrideString(&cfg.Prosody.Mode, "LINGUA_PROSODY_MODE")
	overrideString(&cfg.Prosody.Command, "LINGUA_PROSODY_COMMAND")
	overrideString(&cfg.Summary.Mode, "LINGUA_SUMMARY_MODE")
	overrideString(&cfg.Summary.Command, "LINGUA_SUMMARY_COMMAND")
	overrideInt(&cfg.Worker.Concurrency, "LINGUA_WORKER_CONCURRENCY")
	overrideInt(&cfg.Worker.JobTimeoutMS, "LINGUA_WORKER_JOB_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Recordings.Path == "" {
		return errors.New("recordings.path must not be empty")
	}
	switch cfg.Storage.Mode {
	case "local":
		if cfg.Storage.Directory == "" {
			return errors.New("storage.directory must not be empty when mode=local")
		}
	case "s3":
		if cfg.Storage.Bucket == "" {
			return errors.New("storage.bucket must not be empty when mode=s3")
		}
	default:
		return errors.New("storage.mode must be one of local|s3")
	}
	if cfg.Transcode.ToolPath == "" && cfg.Transcode.ToolName == "" {
		return errors.New("transcode.tool_name must not be empty when no tool_path override is set")
	}
	switch cfg.Speech.Mode {
	case "mock", "exec":
	default:
		return errors.New("speech.mode must be one of mock|exec")
	}
	if cfg.Speech.Mode == "exec" && cfg.Speech.Command == "" {
		return errors.New("speech.command must be set when mode=exec")
	}
	if cfg.Speech.SampleRate <= 0 {
		return errors.New("speech.sample_rate must be positive")
	}
	if cfg.Speech.Channels <= 0 {
		return errors.New("speech.channels must be positive")
	}
	if err := validateAnalyzer("prosody", cfg.Prosody); err != nil {
		return err
	}
	if err := validateAnalyzer("summary", cfg.Summary); err != nil {
		return err
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be >= 1")
	}
	if cfg.Worker.JobTimeoutMS <= 0 {
		return errors.New("worker.job_timeout_ms must be positive")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	return nil
}

func validateAnalyzer(name string, cfg AnalyzerConfig) error {
	switch cfg.Mode {
	case "mock", "exec":
	default:
		return fmt.Errorf("%s.mode must be one of mock|exec", name)
	}
	if cfg.Mode == "exec" && cfg.Command == "" {
		return fmt.Errorf("%s.command must be set when mode=exec", name)
	}
	return nil
}

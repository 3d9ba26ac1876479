package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// DefaultPrompt asks for a short shot description plus a filming-technique note.
const DefaultPrompt = "这是短视频的一个分镜。请先描述画面，然后从短视频拍摄技巧角度分析这个分镜。字数在80字以内。"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir            string `yaml:"work_dir"`
	TempDir            string `yaml:"temp_dir"`
	Concurrency        int    `yaml:"concurrency"`
	MaxDurationSeconds int    `yaml:"max_duration_seconds"`

	FFmpeg     FFmpegConfig     `yaml:"ffmpeg"`
	Scene      SceneConfig      `yaml:"scene"`
	Speech     SpeechConfig     `yaml:"speech"`
	Correction CorrectionConfig `yaml:"correction"`
	Describe   DescribeConfig   `yaml:"describe"`
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Queue      QueueConfig      `yaml:"queue"`
}

type FFmpegConfig struct {
	Threads int `yaml:"threads"`
	// AnalysisWidth downscales frames before feature extraction (0 keeps source size)
	AnalysisWidth int `yaml:"analysis_width"`
}

type SceneConfig struct {
	Threshold          float64 `yaml:"threshold"`
	MinSceneDuration   float64 `yaml:"min_scene_duration"`
	WindowSize         int     `yaml:"window_size"`
	TrailingDropFrames int     `yaml:"trailing_drop_frames"`
	MergeGapSeconds    float64 `yaml:"merge_gap_seconds"`
	SaveFrames         bool    `yaml:"save_frames"`
	IntensityWeight    float64 `yaml:"intensity_weight"`
	EdgeWeight         float64 `yaml:"edge_weight"`
}

type SpeechConfig struct {
	// Backend selects the ASR engine: "sensevoice" or "openai"
	Backend    string           `yaml:"backend"`
	SampleRate int              `yaml:"sample_rate"`
	VAD        VADConfig        `yaml:"vad"`
	SenseVoice SenseVoiceConfig `yaml:"sensevoice"`
	OpenAI     OpenAIASRConfig  `yaml:"openai"`
}

type VADConfig struct {
	Model              string  `yaml:"model"`
	Threshold          float64 `yaml:"threshold"`
	MinSilenceDuration float64 `yaml:"min_silence_duration"`
	MinSpeechDuration  float64 `yaml:"min_speech_duration"`
	MaxSpeechDuration  float64 `yaml:"max_speech_duration"`
	WindowSize         int     `yaml:"window_size"`
	ReadChunkSeconds   float64 `yaml:"read_chunk_seconds"`
}

type SenseVoiceConfig struct {
	Model      string `yaml:"model"`
	Tokens     string `yaml:"tokens"`
	Language   string `yaml:"language"`
	UseITN     bool   `yaml:"use_itn"`
	NumThreads int    `yaml:"num_threads"`
	Provider   string `yaml:"provider"`
}

type OpenAIASRConfig struct {
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

type CorrectionConfig struct {
	SearchMargin  int     `yaml:"search_margin"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

type DescribeConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	Prompt            string `yaml:"prompt"`
	MaxTokens         int    `yaml:"max_tokens"`
	Detail            string `yaml:"detail"`
	MaxImageEdge      int    `yaml:"max_image_edge"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type QueueConfig struct {
	Addr        string `yaml:"addr"`
	Name        string `yaml:"name"`
	ResultsName string `yaml:"results_name"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		WorkDir:            "./work",
		TempDir:            "./temp",
		Concurrency:        8,
		MaxDurationSeconds: 300,
		FFmpeg: FFmpegConfig{
			Threads:       0,
			AnalysisWidth: 0,
		},
		Scene: SceneConfig{
			Threshold:          2.0,
			MinSceneDuration:   3.0,
			WindowSize:         5,
			TrailingDropFrames: 3,
			MergeGapSeconds:    0.5,
			SaveFrames:         true,
			IntensityWeight:    0.7,
			EdgeWeight:         0.3,
		},
		Speech: SpeechConfig{
			Backend:    "sensevoice",
			SampleRate: 16000,
			VAD: VADConfig{
				Model:              "./models/silero_vad.onnx",
				Threshold:          0.2,
				MinSilenceDuration: 0.15,
				MinSpeechDuration:  0.05,
				MaxSpeechDuration:  5,
				WindowSize:         512,
				ReadChunkSeconds:   100,
			},
			SenseVoice: SenseVoiceConfig{
				Model:      "./models/sensevoice/model.int8.onnx",
				Tokens:     "./models/sensevoice/tokens.txt",
				Language:   "auto",
				UseITN:     true,
				NumThreads: 8,
				Provider:   "cpu",
			},
			OpenAI: OpenAIASRConfig{
				Model: "whisper-1",
			},
		},
		Correction: CorrectionConfig{
			SearchMargin:  50,
			MinSimilarity: 0.6,
		},
		Describe: DescribeConfig{
			BaseURL:      "https://api.bltcy.ai/v1",
			Model:        "gpt-4o-mini",
			Prompt:       DefaultPrompt,
			MaxTokens:    200,
			Detail:       "low",
			MaxImageEdge: 768,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8000",
		},
		Store: StoreConfig{
			Path: "./work/shotlist.db",
		},
		Queue: QueueConfig{
			Addr:        "127.0.0.1:6379",
			Name:        "shotlist:jobs",
			ResultsName: "shotlist:results",
		},
	}
}

// applyEnv lets secrets and endpoints come from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("SHOTLIST_API_KEY"); v != "" {
		c.Describe.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Describe.APIKey == "" {
		c.Describe.APIKey = v
	}
	if v := os.Getenv("SHOTLIST_BASE_URL"); v != "" {
		c.Describe.BaseURL = v
	}
	if v := os.Getenv("SHOTLIST_REDIS_ADDR"); v != "" {
		c.Queue.Addr = v
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".shotlist", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}

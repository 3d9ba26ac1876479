package pipeline

import (
	"fmt"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/internal/ffmpeg"
	"github.com/kikiluvv/shotlist/pkg/util"
)

// Check is one environment probe
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	// Required checks block analysis when they fail
	Required bool `json:"required"`
}

// Diagnose probes the tools and model files the configured pipeline needs
func Diagnose(cfg *config.Config) []Check {
	var checks []Check

	ffmpegErr := ffmpeg.Available()
	checks = append(checks, result("ffmpeg/ffprobe", ffmpegErr, true))

	checks = append(checks, fileCheck("vad model", cfg.Speech.VAD.Model, true))

	switch cfg.Speech.Backend {
	case "", "sensevoice":
		checks = append(checks,
			fileCheck("sensevoice model", cfg.Speech.SenseVoice.Model, true),
			fileCheck("sensevoice tokens", cfg.Speech.SenseVoice.Tokens, true),
		)
	case "openai":
		checks = append(checks, keyCheck("asr api key", cfg.Describe.APIKey, true))
	default:
		checks = append(checks, Check{
			Name:     "speech backend",
			Detail:   fmt.Sprintf("unknown backend %q", cfg.Speech.Backend),
			Required: true,
		})
	}

	// Description only runs when frames are saved
	checks = append(checks, keyCheck("describe api key", cfg.Describe.APIKey, cfg.Scene.SaveFrames))

	return checks
}

// Healthy reports whether every required check passed
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if c.Required && !c.OK {
			return false
		}
	}
	return true
}

func result(name string, err error, required bool) Check {
	c := Check{Name: name, OK: err == nil, Required: required}
	if err != nil {
		c.Detail = err.Error()
	}
	return c
}

func fileCheck(name, path string, required bool) Check {
	switch {
	case path == "":
		return Check{Name: name, Detail: "not configured", Required: required}
	case !util.FileExists(path):
		return Check{Name: name, Detail: "missing: " + path, Required: required}
	default:
		return Check{Name: name, OK: true, Detail: path, Required: required}
	}
}

func keyCheck(name, key string, required bool) Check {
	if key == "" {
		return Check{Name: name, Detail: "not set", Required: required}
	}
	return Check{Name: name, OK: true, Detail: "set", Required: required}
}

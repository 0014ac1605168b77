package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/xoxhunterxd/instagram-downloader/download"
)

type config struct {
	Addr      string `env:"ADDR" envDefault:":8000"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// ytdlp: (default), cobalt://host?key=..., fastdl://host:port, ssvid:
	ProviderURL url.URL `env:"PROVIDER_URL" envDefault:"ytdlp:"`

	// overrides the R2_* block: b2://keyID:appKey@bucket,
	// fs://dir?base=http://host:port&server=:8081 or
	// rclone+webdav://host:port?base=https://public.example
	StorageURL *url.URL `env:"STORAGE_URL"`

	ExtractTimeout time.Duration `env:"EXTRACT_TIMEOUT" envDefault:"30s"`
	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"60s"`

	R2 download.R2Config `envPrefix:"R2_"`
}

func loadConfig() (config, error) {
	// .env is optional, real env vars win either way
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing env: %w", err)
	}
	return cfg, nil
}

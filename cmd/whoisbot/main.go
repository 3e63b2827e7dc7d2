// Command whoisbot runs the group moderation bot's admin menu and onboarding.
package main

import (
	"context"
	"fmt"
	"log"

	corecmd "github.com/m3rciful/whoisbot/core/cmd"
	"github.com/m3rciful/whoisbot/internal/app"
	"github.com/m3rciful/whoisbot/internal/config"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			appCfg, ok := cfg.(*config.AppConfig)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", cfg)
			}
			return app.Bootstrap(ctx, appCfg)
		},
	})
	if err != nil {
		log.Fatalf("whoisbot: %v", err)
	}
}

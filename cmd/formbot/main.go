// Command formbot runs the questionnaire bot.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/m3rciful/formbot/core/bootstrap"
	"github.com/m3rciful/formbot/core/cmd"
	"github.com/m3rciful/formbot/core/config"
)

type fileConfig struct {
	cfg *config.Config
}

func (f fileConfig) CoreConfig() *config.Config { return f.cfg }

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return fileConfig{cfg: cfg}, nil
		},
		Bootstrap: func(ctx context.Context, c cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return bootstrap.Run(ctx, bootstrap.Options{Config: c.CoreConfig()})
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/m3rciful/studybot/core/bootstrap"
	corecmd "github.com/m3rciful/studybot/core/cmd"
	coreconfig "github.com/m3rciful/studybot/core/config"
	"github.com/m3rciful/studybot/internal/bot"
	"github.com/m3rciful/studybot/internal/storage"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(cmd.Context(), corecmd.Options{
				ConfigPath:        *configPath,
				ConfigEnvVar:      "CONFIG_PATH",
				DefaultConfigPath: defaultConfigPath,
				LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
					cfg, err := coreconfig.Load(path)
					if err != nil {
						return nil, err
					}
					return cfg, nil
				},
				Bootstrap: bootstrapApp,
			})
		},
	}
}

func bootstrapApp(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()
	res, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}

	var ledger storage.Ledger = storage.NopLedger{}
	if res.DB != nil {
		ledger = storage.NewPostgresLedger(res.DB)
	}
	app, err := bot.New(bot.Options{
		Config:  cfg,
		Catalog: res.Catalog,
		Ledger:  ledger,
		Closer:  res,
	})
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	return app, nil
}

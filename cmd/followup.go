package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/applyflow/applyflow/internal/followup"
	"github.com/applyflow/applyflow/internal/logger"
	"github.com/applyflow/applyflow/internal/profile"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var followUpCmd = &cobra.Command{
	Use:   "followup",
	Short: "Send follow-ups for applications whose response window elapsed",
	Run: func(cmd *cobra.Command, _ []string) {
		runFollowUp(cmd)
	},
}

func init() {
	rootCmd.AddCommand(followUpCmd)
}

func runFollowUp(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil || config.ProfileFile == "" {
		logger.Fatal("a profile file is required under profile-file")
	}

	prof, err := profile.FromFile(config.ProfileFile)
	if err != nil {
		logger.Fatal("loading the profile", zap.Error(err))
	}

	st, err := openStore(config)
	if err != nil {
		logger.Fatal("opening the application store", zap.Error(err))
	}
	defer st.Close()

	deps := followup.Deps{
		Store:   st,
		Machine: newMachine(config),
		Logger:  logger,
	}

	if config.Dispatch != nil && config.Dispatch.Enabled {
		sender, err := newSMTP(config, logger)
		if err != nil {
			logger.Fatal("building the smtp dispatcher", zap.Error(err))
		}
		deps.Dispatcher = sender
	}

	var window time.Duration
	if config.FollowUp != nil {
		window = config.FollowUp.Window
	}

	manager := followup.New(followup.Config{Window: window, SendPause: time.Second}, deps)

	summary, err := manager.Process(ctx, prof.ID, time.Now().UTC())
	if err != nil {
		logger.Fatal("processing follow-ups", zap.Error(err))
	}

	fmt.Printf("examined: %d, followed up: %d, abandoned: %d, errors: %d\n",
		summary.Examined, summary.FollowedUp, summary.Abandoned, len(summary.Errors))
	for _, e := range summary.Errors {
		fmt.Printf("  %s\n", e)
	}
}

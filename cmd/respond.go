package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/applyflow/applyflow/internal/application"
	"github.com/applyflow/applyflow/internal/followup"
	"github.com/applyflow/applyflow/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var respondCmd = &cobra.Command{
	Use:   "respond <application-id> <positive|negative> [note]",
	Short: "Record an employer response for a followed-up application",
	Args:  cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		runRespond(cmd, args)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <application-id> [reason]",
	Short: "Cancel a pending application, abandoning its retries",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		runCancel(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(cancelCmd)
}

func runRespond(_ *cobra.Command, args []string) {
	manager, st, logger := newManager()
	defer st.Close()

	var response application.Response
	switch args[1] {
	case string(application.ResponsePositive):
		response = application.ResponsePositive
	case string(application.ResponseNegative):
		response = application.ResponseNegative
	default:
		logger.Fatal("the response must be positive or negative", zap.String("got", args[1]))
	}

	detail := ""
	if len(args) == 3 {
		detail = args[2]
	}

	app, err := manager.RecordResponse(context.Background(), args[0], response, detail, time.Now().UTC())
	if err != nil {
		logger.Fatal("recording the response", zap.Error(err))
	}

	fmt.Printf("application %s is now %s\n", app.ID, app.State)
}

func runCancel(_ *cobra.Command, args []string) {
	manager, st, logger := newManager()
	defer st.Close()

	reason := "cancelled by operator"
	if len(args) == 2 {
		reason = args[1]
	}

	app, err := manager.Cancel(context.Background(), args[0], reason, time.Now().UTC())
	if err != nil {
		logger.Fatal("cancelling the application", zap.Error(err))
	}

	fmt.Printf("application %s is now %s\n", app.ID, app.State)
}

func newManager() (*followup.Manager, interface{ Close() error }, *zap.Logger) {
	log0, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log0.Fatal("getting a config", zap.Error(err))
	}

	st, err := openStore(config)
	if err != nil {
		log0.Fatal("opening the application store", zap.Error(err))
	}

	manager := followup.New(followup.Config{}, followup.Deps{
		Store:   st,
		Machine: newMachine(config),
		Logger:  log0,
	})

	return manager, st, log0
}

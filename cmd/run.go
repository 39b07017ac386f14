package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/applyflow/applyflow/internal/ai/gemini"
	"github.com/applyflow/applyflow/internal/application"
	"github.com/applyflow/applyflow/internal/dedup"
	"github.com/applyflow/applyflow/internal/dispatch"
	"github.com/applyflow/applyflow/internal/feed"
	"github.com/applyflow/applyflow/internal/logger"
	"github.com/applyflow/applyflow/internal/pipeline"
	"github.com/applyflow/applyflow/internal/posting"
	"github.com/applyflow/applyflow/internal/profile"
	"github.com/applyflow/applyflow/internal/scoring"
	"github.com/applyflow/applyflow/internal/secrets"
	"github.com/applyflow/applyflow/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptApply = "Apply anyway"
	PromptSkip  = "Skip this posting"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the applyflow pipeline over a batch of scraped postings",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("dry-run", "n", false, "score and queue but do not dispatch applications")
	runCmd.Flags().StringP("postings-file", "p", "", "JSON file with scraped postings. Overrides the config value.")

	viper.BindPFlag("dry-run", runCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("postings-file", runCmd.Flags().Lookup("postings-file"))
}

// run is the main command for the cli.
func run(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the applyflow pipeline", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.ProfileFile == "" {
		logger.Fatal("a profile file is required under profile-file to score postings")
	}

	prof, err := profile.FromFile(config.ProfileFile)
	if err != nil {
		logger.Fatal("loading the profile", zap.Error(err))
	}

	raws, err := feed.FromFile(viper.GetString("postings-file"))
	if err != nil {
		logger.Fatal("loading the postings batch", zap.Error(err))
	}

	if len(raws) == 0 {
		logger.Info("the postings batch is empty, nothing to do")
		return
	}

	st, err := openStore(config)
	if err != nil {
		logger.Fatal("opening the application store", zap.Error(err))
	}
	defer st.Close()

	scorer, err := newScorer(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the scorer", zap.Error(err))
	}

	detector := newDetector(config)
	machine := newMachine(config)

	deps := pipeline.Deps{
		Store:    st,
		Scorer:   scorer,
		Detector: detector,
		Machine:  machine,
		Logger:   logger,
	}

	if detector.OnProbablePolicy() == dedup.Flag {
		deps.Review = promptReview
	}

	var reporter dispatch.ReportSender
	dispatchCfg := pipeline.Config{DryRun: viper.GetBool("dry-run"), ResumePath: config.ResumeFile}

	if config.Dispatch != nil && config.Dispatch.Enabled {
		sender, err := newSMTP(config, logger)
		if err != nil {
			logger.Fatal("building the smtp dispatcher", zap.Error(err))
		}
		deps.Dispatcher = sender
		reporter = sender
		dispatchCfg.BackoffBase = config.Dispatch.BackoffBase

		if writer := newCoverLetterWriter(ctx, config, logger); writer != nil {
			deps.Writer = writer
		}
	}

	pl, err := pipeline.New(dispatchCfg, deps)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	report, runErr := pl.Run(ctx, prof, raws)
	fmt.Print(report.Summary())

	if reporter != nil && config.Report != nil && config.Report.Recipient != "" {
		subject := fmt.Sprintf("applyflow run report %s", time.Now().Format("2006-01-02"))
		if err := reporter.SendReport(ctx, config.Report.Recipient, subject, report.Summary()); err != nil {
			logger.Warn("sending the run report", zap.Error(err))
		}
	}

	if runErr != nil {
		logger.Fatal("the pipeline run aborted", zap.Error(runErr))
	}
}

func openStore(config *Config) (store.Store, error) {
	if config.StorePath == "" {
		return store.NewMemory(), nil
	}
	return store.OpenSQLite(config.StorePath)
}

func newDetector(config *Config) *dedup.Detector {
	cfg := dedup.Config{}
	if config.Dedup != nil {
		cfg.Threshold = config.Dedup.Threshold
		cfg.OnProbable = dedup.OnProbable(config.Dedup.OnProbable)
	}
	return dedup.New(cfg)
}

func newMachine(config *Config) *application.Machine {
	var threshold, attempts, followUps int
	if config.Scoring != nil {
		threshold = config.Scoring.Threshold
	}
	if config.Dispatch != nil {
		attempts = config.Dispatch.MaxAttempts
	}
	if config.FollowUp != nil {
		followUps = config.FollowUp.MaxFollowUps
	}
	return application.NewMachine(threshold, attempts, followUps)
}

func newScorer(ctx context.Context, config *Config, logger *zap.Logger) (scoring.Scorer, error) {
	weights := scoring.DefaultWeights()
	if config.Scoring != nil && len(config.Scoring.Weights) > 0 {
		w, err := scoring.WeightsFromMap(config.Scoring.Weights)
		if err != nil {
			return nil, err
		}
		weights = w
	}

	rules := scoring.NewRuleScorer(weights)

	model := modelConfig(config)
	if model == nil {
		return rules, nil
	}

	generator, err := newGenerator(ctx, model)
	if err != nil {
		return nil, err
	}

	assessor := gemini.NewAssessor(generator, logger, model.Gemini.MaxLogLength)

	return scoring.NewBlendedScorer(rules, assessor, model.MixRatio, logger), nil
}

func newCoverLetterWriter(ctx context.Context, config *Config, logger *zap.Logger) pipeline.CoverLetterWriter {
	model := modelConfig(config)
	if model == nil {
		return nil
	}

	generator, err := newGenerator(ctx, model)
	if err != nil {
		logger.Warn("building the cover letter writer, falling back to the plain template", zap.Error(err))
		return nil
	}

	return gemini.NewWriter(generator, logger)
}

func modelConfig(config *Config) *ModelConfig {
	if config.Scoring == nil || config.Scoring.Model == nil || !config.Scoring.Model.Enabled {
		return nil
	}
	if config.Scoring.Model.Gemini == nil {
		return nil
	}
	return config.Scoring.Model
}

func newGenerator(ctx context.Context, model *ModelConfig) (*gemini.Generator, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: model.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set scoring.model.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	return gemini.NewGenerator(ctx, apiKey, model.Gemini.Model)
}

func newSMTP(config *Config, logger *zap.Logger) (*dispatch.SMTP, error) {
	settings := config.Dispatch.SMTP
	if settings == nil {
		return nil, fmt.Errorf("dispatch is enabled but dispatch.smtp is not configured")
	}

	password, err := secrets.Load(secrets.Source{
		Name: "smtp password",
		File: settings.PasswordFile,
		Env:  "SMTP_PASSWORD",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set dispatch.smtp.password-file or SMTP_PASSWORD)", err)
	}

	return dispatch.NewSMTP(dispatch.SMTPConfig{
		Server:    settings.Server,
		Port:      settings.Port,
		Sender:    settings.Sender,
		Password:  password,
		Recipient: settings.Recipient,
	}, logger)
}

// promptReview asks the operator what to do with a probable duplicate. Any
// prompt failure, e.g. a non-interactive terminal, skips the posting.
func promptReview(p *posting.Posting, verdict dedup.Verdict) bool {
	prompt := promptui.Select{
		Label: fmt.Sprintf("Probable duplicate (%.0f%% similar to %s): %s / %s",
			verdict.Similarity*100, shortFingerprint(verdict.MatchedWith), p.Title, p.Company),
		Items: []string{PromptSkip, PromptApply},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		return false
	}

	return answer == PromptApply
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return strings.TrimSpace(fp)
}

package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "applyflow"
)

type Config struct {
	StorePath    string          `mapstructure:"store-path"`
	ProfileFile  string          `mapstructure:"profile-file"`
	PostingsFile string          `mapstructure:"postings-file"`
	ResumeFile   string          `mapstructure:"resume-file"`
	Dedup        *DedupConfig    `mapstructure:"dedup"`
	Scoring      *ScoringConfig  `mapstructure:"scoring"`
	Dispatch     *DispatchConfig `mapstructure:"dispatch"`
	FollowUp     *FollowUpConfig `mapstructure:"followup"`
	Report       *ReportConfig   `mapstructure:"report"`
}

type DedupConfig struct {
	Threshold  float64 `mapstructure:"threshold"`
	OnProbable string  `mapstructure:"on-probable"`
}

type ScoringConfig struct {
	Threshold int                `mapstructure:"threshold"`
	Weights   map[string]float64 `mapstructure:"weights"`
	Model     *ModelConfig       `mapstructure:"model"`
}

type ModelConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	MixRatio float64       `mapstructure:"mix-ratio"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type DispatchConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxAttempts int           `mapstructure:"max-attempts"`
	BackoffBase time.Duration `mapstructure:"backoff-base"`
	SMTP        *SMTPSettings `mapstructure:"smtp"`
}

type SMTPSettings struct {
	Server       string `mapstructure:"server"`
	Port         int    `mapstructure:"port"`
	Sender       string `mapstructure:"sender"`
	PasswordFile string `mapstructure:"password-file"`
	Recipient    string `mapstructure:"recipient"`
}

type FollowUpConfig struct {
	Window       time.Duration `mapstructure:"window"`
	MaxFollowUps int           `mapstructure:"max-follow-ups"`
}

type ReportConfig struct {
	Recipient string `mapstructure:"recipient"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "applyflow scores scraped job postings against a profile and drives applications through their lifecycle",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("scoring.model.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("dispatch.smtp.password-file", "SMTP_PASSWORD_FILE"); err != nil {
		log.Fatalf("binding SMTP_PASSWORD_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is applyflow.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command works without a config file.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabprof/internal/analysis"
	"github.com/KaramelBytes/tabprof/internal/logging"
)

// ErrInvalidValue marks a config value that failed validation.
var ErrInvalidValue = errors.New("invalid config value")

// Global configuration structure.
type Global struct {
	Strategy  string  `mapstructure:"strategy" yaml:"strategy"`
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`

	OutlierMethod   string  `mapstructure:"outlier_method" yaml:"outlier_method"`
	IQRK            float64 `mapstructure:"iqr_k" yaml:"iqr_k"`
	ZScoreThreshold float64 `mapstructure:"zscore_threshold" yaml:"zscore_threshold"`
	MADThreshold    float64 `mapstructure:"mad_threshold" yaml:"mad_threshold"`

	MaxRows          int    `mapstructure:"max_rows" yaml:"max_rows"`
	ReportPath       string `mapstructure:"report_path" yaml:"report_path"`
	PlotDir          string `mapstructure:"plot_dir" yaml:"plot_dir"`
	LogLevel         string `mapstructure:"log_level" yaml:"log_level"`
	TimestampReports bool   `mapstructure:"timestamp_reports" yaml:"timestamp_reports"`
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"strategy", "threshold",
	"outlier_method", "iqr_k", "zscore_threshold", "mad_threshold",
	"max_rows", "report_path", "plot_dir", "log_level", "timestamp_reports",
}

// Default returns the built-in configuration.
func Default() *Global {
	return &Global{
		Strategy:         string(analysis.StrategyMean),
		Threshold:        0.5,
		OutlierMethod:    string(analysis.MethodIQR),
		IQRK:             analysis.MethodIQR.DefaultParam(),
		ZScoreThreshold:  analysis.MethodZScore.DefaultParam(),
		MADThreshold:     analysis.MethodMAD.DefaultParam(),
		ReportPath:       "analysis_report.txt",
		PlotDir:          "plots",
		LogLevel:         "info",
		TimestampReports: true,
	}
}

// MissingPolicy returns the configured missing-value policy.
func (c *Global) MissingPolicy() analysis.MissingPolicy {
	return analysis.MissingPolicy{Strategy: analysis.Strategy(c.Strategy), Threshold: c.Threshold}
}

// OutlierParam returns the configured parameter for method m.
func (c *Global) OutlierParam(m analysis.OutlierMethod) float64 {
	switch m {
	case analysis.MethodZScore:
		return c.ZScoreThreshold
	case analysis.MethodMAD:
		return c.MADThreshold
	default:
		return c.IQRK
	}
}

// Validate checks every value that has a restricted domain.
func (c *Global) Validate() error {
	if err := c.MissingPolicy().Validate(); err != nil {
		return errors.Mark(err, ErrInvalidValue)
	}
	if _, err := analysis.ParseOutlierMethod(c.OutlierMethod); err != nil {
		return errors.Mark(err, ErrInvalidValue)
	}
	params := []struct {
		key string
		val float64
	}{
		{"iqr_k", c.IQRK},
		{"zscore_threshold", c.ZScoreThreshold},
		{"mad_threshold", c.MADThreshold},
	}
	for _, p := range params {
		if !(p.val > 0) {
			return errors.Wrapf(ErrInvalidValue, "%s must be positive, got %v", p.key, p.val)
		}
	}
	if c.MaxRows < 0 {
		return errors.Wrapf(ErrInvalidValue, "max_rows must be >= 0, got %d", c.MaxRows)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.Mark(err, ErrInvalidValue)
	}
	return nil
}

// Get returns the display value of key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "strategy":
		return c.Strategy, nil
	case "threshold":
		return formatFloat(c.Threshold), nil
	case "outlier_method":
		return c.OutlierMethod, nil
	case "iqr_k":
		return formatFloat(c.IQRK), nil
	case "zscore_threshold":
		return formatFloat(c.ZScoreThreshold), nil
	case "mad_threshold":
		return formatFloat(c.MADThreshold), nil
	case "max_rows":
		return strconv.Itoa(c.MaxRows), nil
	case "report_path":
		return c.ReportPath, nil
	case "plot_dir":
		return c.PlotDir, nil
	case "log_level":
		return c.LogLevel, nil
	case "timestamp_reports":
		return strconv.FormatBool(c.TimestampReports), nil
	}
	return "", errors.Wrapf(ErrInvalidValue, "unknown key: %s", key)
}

// Set parses val into key and validates the result. c is unchanged on error.
func (c *Global) Set(key, val string) error {
	next := *c
	val = strings.TrimSpace(val)
	var err error
	switch key {
	case "strategy":
		next.Strategy = val
	case "threshold":
		next.Threshold, err = strconv.ParseFloat(val, 64)
	case "outlier_method":
		next.OutlierMethod = strings.ToLower(val)
	case "iqr_k":
		next.IQRK, err = strconv.ParseFloat(val, 64)
	case "zscore_threshold":
		next.ZScoreThreshold, err = strconv.ParseFloat(val, 64)
	case "mad_threshold":
		next.MADThreshold, err = strconv.ParseFloat(val, 64)
	case "max_rows":
		next.MaxRows, err = strconv.Atoi(val)
	case "report_path":
		next.ReportPath = val
	case "plot_dir":
		next.PlotDir = val
	case "log_level":
		next.LogLevel = strings.ToLower(val)
	case "timestamp_reports":
		next.TimestampReports, err = strconv.ParseBool(val)
	default:
		return errors.Wrapf(ErrInvalidValue, "unknown key: %s", key)
	}
	if err != nil {
		return errors.Wrapf(ErrInvalidValue, "%s: %v", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home dir")
	}
	return filepath.Join(home, ".tabprof"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabprof/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir config dir")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by the
// caller on top.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TABPROF")
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("strategy", d.Strategy)
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("outlier_method", d.OutlierMethod)
	v.SetDefault("iqr_k", d.IQRK)
	v.SetDefault("zscore_threshold", d.ZScoreThreshold)
	v.SetDefault("mad_threshold", d.MADThreshold)
	v.SetDefault("max_rows", d.MaxRows)
	v.SetDefault("report_path", d.ReportPath)
	v.SetDefault("plot_dir", d.PlotDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("timestamp_reports", d.TimestampReports)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

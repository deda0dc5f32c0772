// Package settings resolves idhash options from flags, IDHASH_* environment
// variables and an optional config file, and validates them against an
// embedded CUE schema before any work starts.
package settings

import (
	_ "embed"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/idhash/internal/canonical"
	"github.com/roach88/idhash/internal/fingerprint"
	"github.com/roach88/idhash/internal/source"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "IDHASH"

// Setting keys, shared by flags, env vars and config files.
const (
	KeyDigits        = "digits"
	KeyCharacters    = "characters"
	KeyTruncation    = "truncation"
	KeyNormalization = "normalization"
	KeyInferenceRows = "inference-rows"
	KeyBatchSize     = "batch-size"
	KeyWorkers       = "workers"
	KeyQueueDepth    = "queue-depth"
	KeyInputFormat   = "input-format"
)

var keys = []string{
	KeyDigits, KeyCharacters, KeyTruncation, KeyNormalization,
	KeyInferenceRows, KeyBatchSize, KeyWorkers, KeyQueueDepth, KeyInputFormat,
}

// Options is the resolved configuration.
type Options struct {
	Digits        int    `mapstructure:"digits" json:"digits" yaml:"digits"`
	Characters    int    `mapstructure:"characters" json:"characters" yaml:"characters"`
	Truncation    int    `mapstructure:"truncation" json:"truncation" yaml:"truncation"`
	Normalization string `mapstructure:"normalization" json:"normalization" yaml:"normalization"`
	InferenceRows int    `mapstructure:"inference-rows" json:"inference-rows" yaml:"inference-rows"`
	BatchSize     int    `mapstructure:"batch-size" json:"batch-size" yaml:"batch-size"`
	Workers       int    `mapstructure:"workers" json:"workers" yaml:"workers"`
	QueueDepth    int    `mapstructure:"queue-depth" json:"queue-depth" yaml:"queue-depth"`
	InputFormat   string `mapstructure:"input-format" json:"input-format" yaml:"input-format"`
}

// New returns a viper instance reading IDHASH_* variables, with defaults
// for every key except characters and truncation. Those two stay unset so
// Load can tell which one was given explicitly.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		// Explicit bindings make env-only keys visible to Unmarshal.
		_ = v.BindEnv(key, EnvVar(key))
	}

	v.SetDefault(KeyDigits, canonical.DefaultDigits)
	v.SetDefault(KeyNormalization, string(canonical.NormalizationNone))
	v.SetDefault(KeyInferenceRows, source.DefaultInferenceRows)
	v.SetDefault(KeyBatchSize, source.DefaultBatchSize)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyQueueDepth, 0)
	v.SetDefault(KeyInputFormat, "")
	return v
}

// EnvVar returns the environment variable read for key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// RegisterFlags adds one flag per setting to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.IntP(KeyDigits, "d", canonical.DefaultDigits, "significant figures kept for floats (1-17)")
	fs.IntP(KeyCharacters, "c", canonical.DefaultCharacters, "maximum characters kept per value")
	fs.IntP(KeyTruncation, "t", canonical.DefaultCharacters, "alias of --characters")
	fs.String(KeyNormalization, string(canonical.NormalizationNone), "unicode normalization of text (none|nfc|nfkc)")
	fs.IntP(KeyInferenceRows, "r", source.DefaultInferenceRows, "CSV rows sampled for type inference")
	fs.IntP(KeyBatchSize, "b", source.DefaultBatchSize, "CSV rows per batch")
	fs.IntP(KeyWorkers, "w", 0, "parallel workers (0 = GOMAXPROCS, 1 = sequential)")
	fs.Int(KeyQueueDepth, 0, "batches buffered ahead of the workers (0 = 2 x workers)")
	fs.String(KeyInputFormat, "", "input format (csv|tsv|arrow|arrows, ipc and feather mean arrow), detected from the extension when empty")
}

// BindFlags binds every setting flag registered in fs to v. Flags left at
// their default do not count as set.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, key := range keys {
		f := fs.Lookup(key)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	return nil
}

// Load reads configFile when given, resolves the characters/truncation
// alias, normalizes the input-format aliases, expands workers=0 and
// validates the result.
func Load(v *viper.Viper, configFile string) (Options, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
		slog.Debug("config file loaded", "path", v.ConfigFileUsed())
	}

	var o Options
	if err := v.Unmarshal(&o); err != nil {
		return Options{}, fmt.Errorf("decode settings: %w", err)
	}

	charactersSet := v.IsSet(KeyCharacters)
	truncationSet := v.IsSet(KeyTruncation)
	switch {
	case charactersSet && truncationSet && o.Characters != o.Truncation:
		return Options{}, fmt.Errorf("characters (%d) and truncation (%d) disagree; truncation is an alias, set one", o.Characters, o.Truncation)
	case !charactersSet && truncationSet:
		o.Characters = o.Truncation
	case !charactersSet:
		o.Characters = canonical.DefaultCharacters
	}
	o.Truncation = o.Characters

	o.Normalization = strings.ToLower(o.Normalization)

	format, err := source.ParseFormat(o.InputFormat)
	if err != nil {
		return Options{}, fmt.Errorf("invalid settings: input-format: %w", err)
	}
	o.InputFormat = string(format)

	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}

	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Validate checks o against the embedded CUE schema.
func (o Options) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile settings schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Settings"))

	val := ctx.Encode(o)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid settings: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// Canonical projects o onto the canonicalization config.
func (o Options) Canonical() canonical.Config {
	return canonical.Config{
		Digits:        o.Digits,
		Characters:    o.Characters,
		Normalization: canonical.Normalization(o.Normalization),
	}
}

// Fingerprint projects o onto reducer options.
func (o Options) Fingerprint(logger *slog.Logger) fingerprint.Options {
	return fingerprint.Options{
		Config:     o.Canonical(),
		Workers:    o.Workers,
		QueueDepth: o.QueueDepth,
		Logger:     logger,
	}
}

// Source projects o onto source options.
func (o Options) Source() source.Options {
	return source.Options{
		Format:        source.Format(o.InputFormat),
		InferenceRows: o.InferenceRows,
		BatchSize:     o.BatchSize,
	}
}

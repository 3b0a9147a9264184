package mapred

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func loadConfig() {
	viper.SetConfigName("mapredrc")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.mapred")

	setupDefaults()

	viper.ReadInConfig()

	viper.SetEnvPrefix("mapred")
	viper.AutomaticEnv()
}

func setupDefaults() {
	defaultSettings := map[string]interface{}{
		"maxConcurrentTasks":     defaultMaxConcurrentTasks,
		"cachedir":               os.TempDir(),
		"downloadTimeoutSeconds": 60,
		"resultCacheSize":        128,
		"verbose":                false,
	}
	for key, value := range defaultSettings {
		viper.SetDefault(key, value)
	}

	aliases := map[string]string{
		"verbose":  "v",
		"cachedir": "c",
	}
	for key, alias := range aliases {
		viper.RegisterAlias(alias, key)
	}
}

// defaultMaxConcurrentTasks bounds the number of simultaneously running
// shards when the caller does not choose a limit.
const defaultMaxConcurrentTasks = 32

// config configures a Scheduler's execution of a job
type config struct {
	CacheDir           string
	MaxConcurrentTasks int
	DownloadTimeout    time.Duration
	ResultCacheSize    int
}

func newConfig() *config {
	loadConfig() // Load viper config from settings file(s) and environment

	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}

	return &config{
		CacheDir:           viper.GetString("cachedir"),
		MaxConcurrentTasks: viper.GetInt("maxConcurrentTasks"),
		DownloadTimeout:    time.Duration(viper.GetInt("downloadTimeoutSeconds")) * time.Second,
		ResultCacheSize:    viper.GetInt("resultCacheSize"),
	}
}

// Option allows configuration of a Scheduler
type Option func(*config)

// WithCacheDir sets the directory downloaded results are cached in
func WithCacheDir(dir string) Option {
	return func(c *config) {
		c.CacheDir = dir
	}
}

// WithMaxConcurrentTasks caps the number of simultaneously running shards
func WithMaxConcurrentTasks(n int) Option {
	return func(c *config) {
		c.MaxConcurrentTasks = n
	}
}

// WithDownloadTimeout sets the HTTP timeout for result downloads
func WithDownloadTimeout(d time.Duration) Option {
	return func(c *config) {
		c.DownloadTimeout = d
	}
}

// WithResultCacheSize sets the size of the downloaded-result LRU cache
func WithResultCacheSize(n int) Option {
	return func(c *config) {
		c.ResultCacheSize = n
	}
}

var flagVerbose = flag.BoolP("verbose", "v", false, "Output verbose logs")
var flagCacheDir = flag.StringP("cachedir", "c", "", "Result cache `directory`")

// BindFlags parses the package's command line flags into the viper
// configuration. Embedding programs call this once from main before
// constructing a scheduler.
func BindFlags() {
	flag.Parse()
	viper.BindPFlags(flag.CommandLine)
}

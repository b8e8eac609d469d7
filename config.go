package tripbench

import (
	"runtime"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

func loadConfig() {
	viper.SetConfigName("tripbenchrc")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.tripbench")

	setupDefaults()

	viper.ReadInConfig()

	viper.SetEnvPrefix("tripbench")
	viper.AutomaticEnv()
}

// cooldownDuration reads the configured cooldown. A bare number is a count
// of seconds; duration strings like "45s" or "2m" keep their own unit. This
// keeps settings like COOLDOWN=30 from being parsed as 30 nanoseconds.
func cooldownDuration() time.Duration {
	raw := viper.GetString("cooldown")
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return viper.GetDuration("cooldown")
}

func setupDefaults() {
	defaultSettings := map[string]interface{}{
		"data_path":   "data/yellow_tripdata_2015-01.csv",
		"results_dir": "results",
		"cooldown":    "10s",
		"parallelism": runtime.NumCPU(),
		"chunk_size":  64 * 1024 * 1024, // Default lazy scan chunk size is 64Mb
		"top_days":    10,
		"http_addr":   ":8080",
		"verbose":     false,
	}
	for key, value := range defaultSettings {
		viper.SetDefault(key, value)
	}

	aliases := map[string]string{
		"verbose":     "v",
		"results_dir": "o",
	}
	for key, alias := range aliases {
		viper.RegisterAlias(alias, key)
	}
}

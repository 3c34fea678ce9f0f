// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "BirdMap-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "birdmap.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("ebird.apikey", "")
	viper.SetDefault("ebird.baseurl", "https://api.ebird.org/v2")
	viper.SetDefault("ebird.timeout", "30s")
	viper.SetDefault("ebird.cachettl", "5m")
	viper.SetDefault("ebird.ratelimitms", 100)

	viper.SetDefault("birdimage.baseurl", "https://birdimage.example.org/api/v1")
	viper.SetDefault("birdimage.timeout", "15s")

	viper.SetDefault("pipeline.minmovekm", 3.0)
	viper.SetDefault("pipeline.defaultback", "7")
	viper.SetDefault("pipeline.defaultclass", "recent")
}

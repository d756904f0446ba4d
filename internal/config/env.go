package config

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/subosito/gotenv"
)

var envPaths = []string{".env", "../.env", "../../.env"}

// LoadEnv loads variables from the first .env file found in the working
// directory or its parents. Variables already set are left alone.
func LoadEnv() error {
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		return eris.Wrapf(gotenv.Load(envPath), "config: load %s", envPath)
	}
	return nil
}

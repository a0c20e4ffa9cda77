package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvOptional loads environment variables from a .env file if it exists.
// A missing file is not an error; any other stat or parse failure is.
func LoadEnvOptional(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return godotenv.Load(path)
}

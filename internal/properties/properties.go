package properties

import (
	"os"
	"path/filepath"
)

// RootPath is the base directory for study data and run outputs. Every
// relative path in a study configuration is resolved against it.
func RootPath() string {
	if p := os.Getenv("TRM_ROOT_PATH"); p != "" {
		return p
	}
	return "."
}

func DataPath() string {
	if p := os.Getenv("TRM_DATA_PATH"); p != "" {
		return p
	}
	return filepath.Join(RootPath(), "data")
}

func OutputPath() string {
	if p := os.Getenv("TRM_OUTPUT_PATH"); p != "" {
		return p
	}
	return filepath.Join(RootPath(), "output")
}

func CachePath() string {
	if p := os.Getenv("TRM_CACHE_PATH"); p != "" {
		return p
	}
	return filepath.Join(RootPath(), ".cache")
}

func CovariateServiceURL() string {
	return os.Getenv("COVARIATE_SERVICE_URL")
}

func CovariateServiceTokenURL() string {
	return os.Getenv("COVARIATE_SERVICE_TOKEN_URL")
}

func CovariateServiceClientID() string {
	return os.Getenv("COVARIATE_SERVICE_CLIENT_ID")
}

func CovariateServiceClientSecret() string {
	return os.Getenv("COVARIATE_SERVICE_CLIENT_SECRET")
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

package utils

import (
	"os"

	"go.uber.org/zap"
)

// Logger is the process-wide structured logger. It defaults to a no-op so
// service unit tests stay quiet; main swaps in the real logger at startup.
var Logger = zap.NewNop()

func InitializeLogger() {
	var err error
	if os.Getenv("APP_ENV") == "development" {
		Logger, err = zap.NewDevelopment()
	} else {
		Logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
}

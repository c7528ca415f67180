package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. It is a no-op logger until InitLogger is called.
var Logger = zap.NewNop()

// InitLogger init logger
func InitLogger() {
	config := zap.NewProductionConfig()

	config.OutputPaths = []string{"stdout"}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if IsProduction() {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		config.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	} else {
		// Local development
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.Development = true
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// CloudWatch already timestamps and colours break its console view
	if IsLambda() {
		config.Encoding = "json"
		config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}

	options := []zap.Option{
		zap.AddStacktrace(zapcore.ErrorLevel),
	}

	if name := os.Getenv("APP_SERVICE_NAME"); name != "" {
		options = append(options, zap.Fields(zap.String("service", name)))
	}

	logger, err := config.Build(options...)
	if err != nil {
		panic(err)
	}
	Logger = logger
}

// IsProduction reports whether the service runs with production settings
func IsProduction() bool {
	return os.Getenv("GO_ENV") == "production" || os.Getenv("ENV") == "production"
}

// IsLambda reports whether the process was started by the AWS Lambda runtime
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}

package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init builds the process-wide zap logger. When logFile is non-empty,
// output goes to a rotating file as well as stdout.
func Init(logFile string) *zap.SugaredLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	syncer := zapcore.AddSync(os.Stdout)
	if logFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
		}
		syncer = zapcore.NewMultiWriteSyncer(syncer, zapcore.AddSync(rotating))
	}

	core := zapcore.NewCore(encoder, syncer, zapcore.InfoLevel)
	l := zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(l)
	return l.Sugar()
}

// Command agent launches the device telemetry agent entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/supervisor"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/observability"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/telemetry"
)

const (
	defaultConfigPath = "config/agent.json"
	agentLoggerPrefix = "agent "
	startupTimeout    = 30 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	cfgPathFlag := parseFlags()
	ctx, cancel := newSignalContext()
	defer cancel()

	logger := newAgentLogger()
	configPath := resolveConfigPath(cfgPathFlag)

	sup := supervisor.New()
	initCtx, initCancel := context.WithTimeout(ctx, startupTimeout)
	defer initCancel()

	cfg := supervisor.Config{
		LocalConfigPath: configPath,
		TransportURL:    os.Getenv("AGENT_TRANSPORT_URL"),
		Logger:          stdlibLogger{logger},
		Telemetry:       telemetry.DefaultConfig(),
	}

	if err := sup.Init(initCtx, cfg); err != nil {
		logger.Fatalf("initialize agent: %v", err)
	}
	logger.Printf("agent initialized: config=%s", configPath)

	startCtx, startCancel := context.WithTimeout(ctx, startupTimeout)
	defer startCancel()
	if err := sup.Start(startCtx); err != nil {
		logger.Fatalf("start agent: %v", err)
	}
	logger.Print("agent started; awaiting shutdown signal")

	<-ctx.Done()
	logger.Print("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	shutdownStart := time.Now()
	if err := sup.Stop(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	logger.Printf("shutdown completed in %v", time.Since(shutdownStart))
}

func parseFlags() string {
	cfgPath := flag.String("config", "", fmt.Sprintf("Path to local agent configuration file (default: %s)", defaultConfigPath))
	flag.Parse()
	return *cfgPath
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newAgentLogger() *log.Logger {
	return log.New(os.Stdout, agentLoggerPrefix, log.LstdFlags|log.Lmicroseconds)
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return defaultConfigPath
}

// stdlibLogger adapts the bootstrap *log.Logger to observability.Logger so
// the supervisor's init order can install it before any richer sink exists.
type stdlibLogger struct {
	l *log.Logger
}

func (s stdlibLogger) Debug(msg string, fields ...observability.Field) { s.log("DEBUG", msg, fields) }
func (s stdlibLogger) Info(msg string, fields ...observability.Field)  { s.log("INFO", msg, fields) }
func (s stdlibLogger) Error(msg string, fields ...observability.Field) { s.log("ERROR", msg, fields) }

func (s stdlibLogger) log(level, msg string, fields []observability.Field) {
	s.l.Printf("[%s] %s %s", level, msg, formatFields(fields))
}

func formatFields(fields []observability.Field) string {
	if len(fields) == 0 {
		return ""
	}
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", f.Key, f.Value)
	}
	return out
}

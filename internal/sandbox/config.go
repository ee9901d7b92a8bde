package sandbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Mode selects the sandbox execution backend.
type Mode string

const (
	// ModeDocker uses Docker containers for isolation.
	ModeDocker Mode = "docker"
	// ModeHost runs commands directly on the host (no isolation).
	ModeHost Mode = "host"
	// ModeAuto selects Docker if available, otherwise falls back to host.
	ModeAuto Mode = "auto"
)

// Config holds sandbox execution settings.
type Config struct {
	Mode        Mode
	DockerImage string        // custom Docker image override
	CPU         string        // CPU limit (e.g. "2")
	Memory      string        // memory limit (e.g. "1g")
	CmdTimeout  time.Duration // default command timeout (0 = built-in default)
}

// DefaultConfig builds a configuration from environment variables.
func DefaultConfig() Config {
	modeStr := strings.ToLower(os.Getenv("TENX_SANDBOX_MODE"))
	if modeStr == "" {
		modeStr = "host"
	}

	var mode Mode
	switch modeStr {
	case "docker":
		mode = ModeDocker
	case "host":
		mode = ModeHost
	case "auto":
		mode = ModeAuto
	default:
		log.Printf("WARNING: unknown TENX_SANDBOX_MODE value %q, defaulting to host", modeStr)
		mode = ModeHost
	}

	cmdTimeout := defaultCmdTimeout
	if timeoutStr := os.Getenv("TENX_CMD_TIMEOUT"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil && d > 0 {
			cmdTimeout = d
		} else {
			log.Printf("WARNING: invalid TENX_CMD_TIMEOUT value %q, using default 2m", timeoutStr)
		}
	}

	return Config{
		Mode:        mode,
		DockerImage: os.Getenv("TENX_DOCKER_IMAGE"),
		CPU:         getEnvOrDefault("TENX_DOCKER_CPU", "2"),
		Memory:      getEnvOrDefault("TENX_DOCKER_MEMORY", "1g"),
		CmdTimeout:  cmdTimeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// IsDockerAvailable reports whether a Docker daemon is reachable.
func IsDockerAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "docker", "ps")
	return cmd.Run() == nil
}

// NewDefaultRunner creates a runner from the environment configuration.
// Docker mode falls back to host execution when the daemon is unreachable.
func NewDefaultRunner() Runner {
	return RunnerFromConfig(DefaultConfig())
}

// RunnerFromConfig creates a runner for config.Mode, falling back to host
// execution when Docker is requested but unavailable.
func RunnerFromConfig(config Config) Runner {
	ctx := context.Background()

	switch config.Mode {
	case ModeDocker:
		if !IsDockerAvailable(ctx) {
			log.Printf("WARNING: Docker mode requested but Docker is not available, falling back to host execution")
			return &HostRunner{config: config}
		}
		dockerRunner, err := NewDockerRunner(config)
		if err != nil {
			log.Printf("WARNING: failed to create Docker runner: %v, falling back to host execution", err)
			return &HostRunner{config: config}
		}
		return dockerRunner

	case ModeAuto:
		if IsDockerAvailable(ctx) {
			dockerRunner, err := NewDockerRunner(config)
			if err == nil {
				return dockerRunner
			}
			log.Printf("WARNING: Docker available but runner creation failed: %v, falling back to host execution", err)
		}
		return &HostRunner{config: config}

	default:
		return &HostRunner{config: config}
	}
}

// NewRunner creates a specific runner implementation.
func NewRunner(mode Mode, config Config) (Runner, error) {
	switch mode {
	case ModeDocker:
		return NewDockerRunner(config)
	case ModeHost:
		return &HostRunner{config: config}, nil
	default:
		return nil, fmt.Errorf("unknown runner mode: %s", mode)
	}
}

package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const envFileVariable = "ENV_FILE"

var (
	envFilePath string

	loadOnce sync.Once
	loadErr  error
)

func init() {
	if flag.Lookup("env") == nil {
		flag.StringVar(&envFilePath, "env", "", "path to .env file")
	}
}

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New loads the env file once per process, then fills T from the environment
// using envconfig with the given prefix.
func New[T any](prefix string) (*T, error) {
	loadOnce.Do(func() {
		loadErr = loadEnvFile()
	})
	if loadErr != nil {
		return nil, loadErr
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("process config prefix=%q: %w", prefix, err)
	}

	return &conf, nil
}

func loadEnvFile() error {
	if path := resolveEnvPath(os.Args[1:]); path != "" {
		if err := exportEnvironment(path); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	}
	if err := exportEnvironmentIfExists(".env"); err != nil {
		return fmt.Errorf("failed to load default env file: %w", err)
	}
	return nil
}

// resolveEnvPath prefers the parsed -env flag, then a raw scan of args (config can be
// requested from package init before main parses flags), then ENV_FILE.
func resolveEnvPath(args []string) string {
	if flag.Parsed() && strings.TrimSpace(envFilePath) != "" {
		return strings.TrimSpace(envFilePath)
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "env" {
			continue
		}
		if hasValue {
			return strings.TrimSpace(value)
		}
		if i+1 < len(args) {
			return strings.TrimSpace(args[i+1])
		}
	}
	return strings.TrimSpace(os.Getenv(envFileVariable))
}

func exportEnvironmentIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(path)
}

// exportEnvironment copies file settings into the process environment.
// Variables already present in the environment win over the file.
func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if base := filepath.Base(path); strings.HasSuffix(base, ".env") || !strings.Contains(base, ".") {
		v.SetConfigType("env")
	}
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}

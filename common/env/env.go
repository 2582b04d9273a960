package env

import (
	"os"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

const ApplicationEnvKey = "ENVIRONMENT"

// Environment represents the gateway deployment environment
type Environment string

const (
	EnvironmentLocal       Environment = "local"
	EnvironmentLocalDocker Environment = "local-docker"
	EnvironmentDevelopment Environment = "development"
	EnvironmentStaging     Environment = "staging"
	EnvironmentProduction  Environment = "production"
)

var supported = []Environment{
	EnvironmentLocal,
	EnvironmentLocalDocker,
	EnvironmentDevelopment,
	EnvironmentStaging,
	EnvironmentProduction,
}

func (e Environment) String() string { return string(e) }

// IsLocal reports whether the environment runs on a developer machine.
func (e Environment) IsLocal() bool {
	return e == EnvironmentLocal || e == EnvironmentLocalDocker
}

// Parse validates a raw environment name.
func Parse(raw string) (Environment, error) {
	e := Environment(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(supported, e) {
		return e, nil
	}
	names := make([]string, 0, len(supported))
	for _, s := range supported {
		names = append(names, s.String())
	}
	return "", errors.Newf("invalid environment %q: %s must be set to one of %s",
		raw, ApplicationEnvKey, strings.Join(names, ", "))
}

// Current returns the environment from ENVIRONMENT if it is set to a supported value.
func Current() (Environment, error) {
	return Parse(os.Getenv(ApplicationEnvKey))
}

// CurrentOrDefault returns the environment if found, else defaults to the specified env
func CurrentOrDefault(defaultEnv Environment) Environment {
	e, err := Current()
	if err != nil {
		return defaultEnv
	}
	return e
}

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/uptimerobot"
	"github.com/jpalmerr/uptimerobot/internal/errs"
)

// endpointExtensions are the file types read from the endpoint directory.
// JSON is a subset of YAML, so both decode through yaml.v3.
var endpointExtensions = []string{".json", ".yaml", ".yml"}

// LoadEndpoints reads one endpoint descriptor per file from dir, in lexical
// file name order.
//
// Each file holds a single object with a string "url". Every other key is
// kept as the endpoint's extra configuration. ${VAR} and ${VAR:-default} in
// the URL are expanded from the environment.
//
// Loading fails fast: the first unreadable, malformed or invalid file aborts
// with an error naming it. Two files deriving the same endpoint name and an
// empty directory are errors too.
func LoadEndpoints(dir string) ([]uptimerobot.Endpoint, error) {
	files, err := endpointFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errs.New(errs.CodeConfigEndpointsEmpty, "no endpoint files found", errs.FieldPath(dir))
	}

	endpoints := make([]uptimerobot.Endpoint, 0, len(files))
	owners := make(map[string]string, len(files))

	for _, file := range files {
		ep, err := loadEndpointFile(file)
		if err != nil {
			return nil, err
		}

		if prev, ok := owners[ep.Name()]; ok {
			return nil, errs.New(errs.CodeConfigEndpointsDuplicate,
				fmt.Sprintf("endpoint name %q is derived by both %s and %s", ep.Name(), filepath.Base(prev), filepath.Base(file)),
				errs.FieldPath(file), errs.FieldEndpoint(ep.Name()))
		}
		owners[ep.Name()] = file
		endpoints = append(endpoints, ep)
	}

	return endpoints, nil
}

func endpointFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeConfigLoadReadFailure, "reading endpoint directory", errs.FieldPath(dir))
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !slices.Contains(endpointExtensions, ext) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	// ReadDir already sorts by name; keep the order explicit
	slices.Sort(files)
	return files, nil
}

func loadEndpointFile(path string) (uptimerobot.Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return uptimerobot.Endpoint{}, errs.Wrap(err, errs.CodeConfigLoadReadFailure, "reading endpoint file", errs.FieldPath(path))
	}
	return ParseEndpoint(data, filepath.Base(path))
}

// ParseEndpoint decodes a single endpoint descriptor. source names the input
// in error messages.
func ParseEndpoint(data []byte, source string) (uptimerobot.Endpoint, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return uptimerobot.Endpoint{}, errs.New(errs.CodeConfigParseInvalidFormat, source+": empty endpoint file", errs.FieldPath(source))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return uptimerobot.Endpoint{}, errs.Wrap(err, errs.CodeConfigParseInvalidFormat, source+": not a single object", errs.FieldPath(source))
	}

	rawURL, ok := raw["url"]
	if !ok {
		return uptimerobot.Endpoint{}, errs.New(errs.CodeConfigValidateInvalidValue, source+": url is required", errs.FieldPath(source))
	}
	urlStr, ok := rawURL.(string)
	if !ok {
		return uptimerobot.Endpoint{}, errs.New(errs.CodeConfigValidateInvalidValue,
			fmt.Sprintf("%s: url must be a string, got %T", source, rawURL), errs.FieldPath(source))
	}

	expanded, err := expandEnvVars(urlStr)
	if err != nil {
		return uptimerobot.Endpoint{}, errs.Wrap(err, errs.CodeConfigValidateInvalidValue, source+": url", errs.FieldPath(source))
	}

	delete(raw, "url")
	var opts []uptimerobot.EndpointOption
	if len(raw) > 0 {
		opts = append(opts, uptimerobot.WithExtra(raw))
	}

	ep, err := uptimerobot.NewEndpoint(expanded, opts...)
	if err != nil {
		return uptimerobot.Endpoint{}, errs.Wrap(err, errs.CodeConfigValidateInvalidValue, source, errs.FieldPath(source))
	}
	return ep, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
// Group 1: variable name
// Group 2: the ":-default" part, present when a default was given
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
// An unset variable without a default is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		name := sub[1]
		hasDefault := sub[2] != ""

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return sub[3]
		}
		firstErr = fmt.Errorf("environment variable %q is not set", name)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

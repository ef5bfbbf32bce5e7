// Package config assembles process-level engine configuration from the
// environment, the teacher's FromEnv/envOr/envBool convention.
package config

import (
	"os"
	"strings"

	"github.com/mind-engage/qti-testengine/internal/store"
	"github.com/mind-engage/qti-testengine/internal/testdriver"
	"github.com/mind-engage/qti-testengine/pkg/qtimodel"
)

// Config is the process-level configuration for cmd/qtiengine: the HTTP
// surface, the snapshot persistence backend, and the default Test Session
// Driver behavior (§6 Config bitset, navigation/submission defaults, result
// submission policy).
type Config struct {
	HTTPAddr string

	StoreDriver store.Driver
	StoreDSN    string

	DefaultNavigationMode qtimodel.NavigationMode
	DefaultSubmissionMode qtimodel.SubmissionMode

	DriverConfig    testdriver.Config
	ResultsPolicy   testdriver.ResultSubmissionPolicy

	CORSOrigins []string
}

// FromEnv reads Config from the process environment, falling back to
// sensible local-development defaults for anything unset.
func FromEnv() Config {
	var cfg testdriver.Config
	if envBool("QTI_FORCE_BRANCHING", false) {
		cfg |= testdriver.ForceBranching
	}
	if envBool("QTI_FORCE_PRECONDITIONS", false) {
		cfg |= testdriver.ForcePreconditions
	}
	if envBool("QTI_PATH_TRACKING", true) {
		cfg |= testdriver.PathTracking
	}
	if envBool("QTI_ALWAYS_ALLOW_JUMPS", false) {
		cfg |= testdriver.AlwaysAllowJumps
	}
	if envBool("QTI_INITIALIZE_ALL_ITEMS", false) {
		cfg |= testdriver.InitializeAllItems
	}

	resultsPolicy := testdriver.SubmitNever
	if envBool("QTI_SUBMIT_ON_OUTCOME_PROCESSING", true) {
		resultsPolicy = testdriver.SubmitOnOutcomeProcessing
	}

	navMode := qtimodel.Linear
	if strings.EqualFold(envOr("QTI_DEFAULT_NAVIGATION_MODE", "linear"), "nonlinear") {
		navMode = qtimodel.NonLinear
	}
	subMode := qtimodel.Individual
	if strings.EqualFold(envOr("QTI_DEFAULT_SUBMISSION_MODE", "individual"), "simultaneous") {
		subMode = qtimodel.Simultaneous
	}

	return Config{
		HTTPAddr:              envOr("HTTP_ADDR", ":8080"),
		StoreDriver:           store.Driver(envOr("STORE_DRIVER", "sqlite")),
		StoreDSN:              envOr("STORE_DSN", ""),
		DefaultNavigationMode: navMode,
		DefaultSubmissionMode: subMode,
		DriverConfig:          cfg,
		ResultsPolicy:         resultsPolicy,
		CORSOrigins:           csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

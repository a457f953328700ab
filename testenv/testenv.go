// Package testenv prepares the process environment for test runs: it loads a dotenv
// file and records when the run started.
package testenv

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// DefaultPath is loaded when Setup is given an empty path.
const DefaultPath = ".env.test"

var (
	mu        sync.RWMutex
	startTime time.Time
	logger    = logrus.StandardLogger()
)

// SetLogger replaces the logger used to report a missing env file.
func SetLogger(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l != nil {
		logger = l
	}
}

// Setup loads path into the process environment and records the start time.
// Variables already set in the process are left alone. A missing file is not an
// error: it is logged and the run continues with the current environment.
func Setup(path string) error {
	if path == "" {
		path = DefaultPath
	}
	mu.Lock()
	defer mu.Unlock()

	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load test env %s: %w", path, err)
		}
		logger.WithField("path", path).Warn("test env file not found, using process environment")
	}
	startTime = time.Now()
	logger.WithField("path", path).Debug("test environment initialized")
	return nil
}

// StartTime is the moment of the last successful Setup, zero if it never ran.
func StartTime() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return startTime
}

// Keys lists the variable names defined in path, sorted.
func Keys(path string) ([]string, error) {
	if path == "" {
		path = DefaultPath
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

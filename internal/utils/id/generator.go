package id

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// Strategy selects the identifier algorithm.
type Strategy int

const (
	// StrategyKSUID produces lexicographically sortable KSUIDs.
	StrategyKSUID Strategy = iota
	// StrategyUUIDv7 produces time-ordered UUID version 7 values.
	StrategyUUIDv7
)

func (s Strategy) String() string {
	if s == StrategyUUIDv7 {
		return "uuidv7"
	}
	return "ksuid"
}

// ParseStrategy maps a config value ("ksuid", "uuidv7") to a Strategy.
func ParseStrategy(value string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "ksuid":
		return StrategyKSUID, nil
	case "uuidv7", "uuid":
		return StrategyUUIDv7, nil
	default:
		return StrategyKSUID, fmt.Errorf("unknown id strategy %q", value)
	}
}

var defaultGenerator = &Generator{strategy: StrategyKSUID}

// Generator produces prefixed identifiers for quiz records.
type Generator struct {
	mu       sync.RWMutex
	strategy Strategy
}

// SetStrategy configures the default generator.
func SetStrategy(strategy Strategy) {
	defaultGenerator.mu.Lock()
	defaultGenerator.strategy = strategy
	defaultGenerator.mu.Unlock()
}

// NewSubmissionID returns an identifier for a stored submission.
func NewSubmissionID() string {
	return defaultGenerator.New("sub")
}

// NewAdminID returns an identifier for an admin account.
func NewAdminID() string {
	return defaultGenerator.New("adm")
}

// NewLogID returns an identifier used to correlate log lines of one request.
func NewLogID() string {
	return defaultGenerator.New("log")
}

// New returns prefix-<body> where body follows the configured strategy.
func (g *Generator) New(prefix string) string {
	g.mu.RLock()
	strategy := g.strategy
	g.mu.RUnlock()

	body := ""
	if strategy == StrategyUUIDv7 {
		if v7, err := uuid.NewV7(); err == nil {
			body = v7.String()
		}
	}
	if body == "" {
		body = ksuid.New().String()
	}
	return fmt.Sprintf("%s-%s", prefix, body)
}

package newsdex

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string

	keyPrefix    string
	indexName    string
	createIndex  bool
	searchConfig []byte
	resilient    bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCredentials sets an ACL username and password.
func WithCredentials(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithKeyPrefix sets the key prefix of stored records. Default: "newsdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithIndex sets the items index name. Defaults to the key prefix plus "items".
func WithIndex(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithCreateIndexes creates missing indexes on New.
func WithCreateIndexes() Option {
	return optionFunc(func(c *clientConfig) {
		c.createIndex = true
	})
}

// WithSearchConfig sets the search settings as YAML, in the format of the
// "search" section of the server config.
func WithSearchConfig(yaml []byte) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchConfig = yaml
	})
}

// WithResilience retries transient index failures behind a circuit breaker.
func WithResilience() Option {
	return optionFunc(func(c *clientConfig) {
		c.resilient = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

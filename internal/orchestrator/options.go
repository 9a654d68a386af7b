package orchestrator

import (
	"time"

	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/dedup"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/rank"
)

// Option configures an Orchestrator
type Option func(*options)

type options struct {
	session      crawl.Session
	index        dedup.SeenIndex
	runs         RunStore
	scorer       rank.Scorer
	log          *logging.Logger
	clock        func() time.Time
	pub          Publisher
	creds        crawl.Credentials
	walker       crawl.Walker
	window       int
	source       string
	writeRetries int
}

// WithSession sets the listing source every run opens.
func WithSession(s crawl.Session) Option {
	return func(o *options) { o.session = s }
}

// WithSeenIndex sets the store the dedup gate checks and writes.
func WithSeenIndex(idx dedup.SeenIndex) Option {
	return func(o *options) { o.index = idx }
}

// WithRunStore sets where BatchRun records are saved.
func WithRunStore(rs RunStore) Option {
	return func(o *options) { o.runs = rs }
}

func WithScorer(s rank.Scorer) Option {
	return func(o *options) { o.scorer = s }
}

func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock sets a custom clock
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func WithPublisher(p Publisher) Option {
	return func(o *options) { o.pub = p }
}

func WithCredentials(c crawl.Credentials) Option {
	return func(o *options) { o.creds = c }
}

// WithWalker sets retry, backoff and pacing. Session, SliceSize and
// MaxPages are filled in per run.
func WithWalker(w crawl.Walker) Option {
	return func(o *options) { o.walker = w }
}

// WithWindow sets the freshness window in slices; 0 covers the whole run.
func WithWindow(n int) Option {
	return func(o *options) { o.window = n }
}

// WithSource names the source stamped on runs and records.
func WithSource(name string) Option {
	return func(o *options) { o.source = name }
}

func WithWriteRetries(n int) Option {
	return func(o *options) { o.writeRetries = n }
}

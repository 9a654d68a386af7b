package httpapi

import (
	"sync/atomic"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/poll"
	"jobcrawl-engine/internal/store"
)

type Deps struct {
	DB      *store.DB
	Control *store.Control
	Hub     *events.Hub
	Runner  *poll.Runner
	Log     *logging.Logger

	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}

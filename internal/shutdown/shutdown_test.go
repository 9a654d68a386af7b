package shutdown

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"jobcrawl-engine/internal/logging"
)

func TestGracefulStopsAllInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var order []string

	go cancel()
	Graceful(ctx, []os.Signal{os.Interrupt}, time.Second, logging.Nop(),
		Func(func(context.Context) error { order = append(order, "http"); return errors.New("boom") }),
		Func(func(context.Context) error { order = append(order, "store"); return nil }),
	)
	assert.Equal(t, []string{"http", "store"}, order)
}

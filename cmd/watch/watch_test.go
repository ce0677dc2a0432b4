package watch

import (
	"context"
	"errors"
	"testing"

	"papertrader/src/server"

	"github.com/stretchr/testify/assert"
)

func TestWatcher_RunsLoop(t *testing.T) {
	oldLoop, oldServer := startLoop, startServer
	t.Cleanup(func() { startLoop, startServer = oldLoop, oldServer })

	var loops, servers int
	startLoop = func(context.Context) error { loops++; return nil }
	startServer = func(context.Context, *server.Config) error { servers++; return nil }

	w := &Watcher{Config: &Config{}}
	assert.NoError(t, w.Run(context.Background()))
	assert.Equal(t, 1, loops)
	assert.Equal(t, 0, servers)

	w.Config.Serve = true
	assert.NoError(t, w.Run(context.Background()))
	assert.Equal(t, 1, servers)
}

func TestWatcher_PropagatesErrors(t *testing.T) {
	oldLoop := startLoop
	t.Cleanup(func() { startLoop = oldLoop })
	startLoop = func(context.Context) error { return errors.New("db down") }

	w := &Watcher{Config: &Config{}}
	assert.EqualError(t, w.Run(context.Background()), "db down")
}

package ioc

import (
	"log/slog"
	"os"

	// env
	"github.com/joho/godotenv"

	// container
	container "github.com/golobby/container/v3"

	// ports
	replay_out "github.com/osuguard/osuguard/pkg/domain/replay/ports/out"

	// domain
	"github.com/osuguard/osuguard/pkg/domain/loader"

	// infra
	sqlite "github.com/osuguard/osuguard/pkg/infra/db/sqlite"
	osr "github.com/osuguard/osuguard/pkg/infra/osr"
	osuapi "github.com/osuguard/osuguard/pkg/infra/osuapi"

	// app
	guard "github.com/osuguard/osuguard/pkg/app/guard"
)

type ContainerBuilder struct {
	Container container.Container
}

func NewContainerBuilder() *ContainerBuilder {
	c := container.New()

	b := &ContainerBuilder{
		c,
	}

	err := c.Singleton(func() container.Container {
		return b.Container
	})

	if err != nil {
		slog.Error("Failed to register *container.Container in NewContainerBuilder.")
		panic(err)
	}

	return b
}

func (b *ContainerBuilder) Build() container.Container {
	return b.Container
}

func (b *ContainerBuilder) With(buildFn func(b *ContainerBuilder) *ContainerBuilder) *ContainerBuilder {
	return buildFn(b)
}

func (b *ContainerBuilder) WithEnvFile() *ContainerBuilder {
	if os.Getenv("DEV_ENV") == "true" {
		err := godotenv.Load()
		if err != nil {
			slog.Error("Failed to load .env file")
			panic(err)
		}
	}
	return b
}

// WithReplayParser registers the osr decoder.
func (b *ContainerBuilder) WithReplayParser() *ContainerBuilder {
	err := b.Container.Singleton(func() replay_out.ReplayParser {
		return osr.NewParser()
	})
	if err != nil {
		slog.Error("Failed to register ReplayParser.")
		panic(err)
	}
	return b
}

// WithReplayCache registers the sqlite replay cache from GUARD_CACHE_PATH.
// Without a configured path, no store is registered and replays are never
// cached.
func (b *ContainerBuilder) WithReplayCache() *ContainerBuilder {
	path := os.Getenv("GUARD_CACHE_PATH")
	if path == "" {
		slog.Info("GUARD_CACHE_PATH not set, running without a replay cache")
		return b
	}
	err := b.Container.Singleton(func() (replay_out.ReplayStore, error) {
		return sqlite.NewCacher(path, os.Getenv("GUARD_SHOULD_CACHE") != "false")
	})
	if err != nil {
		slog.Error("Failed to register ReplayStore.")
		panic(err)
	}
	return b
}

// WithOsuAPI registers the api client from OSU_API_KEY. Without a key the
// client is not registered and the facade comes up keyless.
func (b *ContainerBuilder) WithOsuAPI() *ContainerBuilder {
	key := os.Getenv("OSU_API_KEY")
	if key == "" {
		slog.Warn("OSU_API_KEY not set, running keyless: api-backed loadables will be rejected")
		return b
	}
	err := b.Container.Singleton(func() replay_out.ApiClient {
		return osuapi.NewClient(key)
	})
	if err != nil {
		slog.Error("Failed to register ApiClient.")
		panic(err)
	}
	return b
}

// WithGuard registers the loader and the facade on top of whatever api
// client and store were registered before it.
func (b *ContainerBuilder) WithGuard() *ContainerBuilder {
	err := b.Container.Singleton(func() *loader.Loader {
		var api replay_out.ApiClient
		if resolveErr := b.Container.Resolve(&api); resolveErr != nil {
			api = nil
		}
		var store replay_out.ReplayStore
		if resolveErr := b.Container.Resolve(&store); resolveErr != nil {
			store = nil
		}
		var parser replay_out.ReplayParser
		if resolveErr := b.Container.Resolve(&parser); resolveErr != nil {
			panic("a ReplayParser must be registered before WithGuard")
		}
		return loader.New(api, store, parser)
	})
	if err != nil {
		slog.Error("Failed to register Loader.")
		panic(err)
	}

	err = b.Container.Singleton(func(l *loader.Loader) *guard.Circleguard {
		return guard.New(l, os.Getenv("GUARD_SHOULD_CACHE") != "false")
	})
	if err != nil {
		slog.Error("Failed to register Circleguard.")
		panic(err)
	}
	return b
}

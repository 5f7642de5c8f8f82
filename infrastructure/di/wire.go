//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"priomatrix-backend/application/drag"
	appevents "priomatrix-backend/application/events"
	"priomatrix-backend/application/ideas"
	"priomatrix-backend/application/lock"
	"priomatrix-backend/application/ports"
	"priomatrix-backend/application/store"
	domainconfig "priomatrix-backend/domain/config"
	"priomatrix-backend/infrastructure/config"
	"priomatrix-backend/infrastructure/persistence/feed"
	"priomatrix-backend/pkg/auth"
	"priomatrix-backend/pkg/observability"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domainconfig.DomainConfig
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Dispatcher   *appevents.Dispatcher
	LockManager  *lock.Manager
	CardStore    *store.CardStore
	Persistence  *Persistence
	SyncAdapter  ports.SyncAdapter
	ChannelFeed  *feed.ChannelFeed
	Engine       *drag.Engine
	IdeasService *ideas.Service
	JWTValidator *auth.JWTValidator
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideMetrics,
	ProvideDispatcher,
	ProvideEventPublisher,
	ProvideLockManager,
	ProvideCardStore,
	ProvideChannelFeed,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvidePersistence,
	ProvideSyncAdapter,
	ProvideEngine,
	ProvideIdeaSource,
	ProvideIdeasService,
	ProvideJWTValidator,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}

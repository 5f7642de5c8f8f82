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
	"priomatrix-backend/infrastructure/ai"
	"priomatrix-backend/infrastructure/config"
	"priomatrix-backend/infrastructure/persistence"
	dynamopersist "priomatrix-backend/infrastructure/persistence/dynamodb"
	"priomatrix-backend/infrastructure/persistence/feed"
	"priomatrix-backend/infrastructure/persistence/memory"
	"priomatrix-backend/pkg/auth"
	"priomatrix-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideDomainConfig derives the engine's domain tunables from the
// environment configuration
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	dc := domainconfig.DefaultDomainConfig()
	dc.LockLease = cfg.LockLease
	return dc
}

// ProvideMetrics creates the Prometheus metrics set
func ProvideMetrics() *observability.Metrics {
	return observability.NewMetrics()
}

// ProvideDispatcher creates the in-process event bus
func ProvideDispatcher(logger *zap.Logger) *appevents.Dispatcher {
	return appevents.NewDispatcher(logger)
}

// ProvideEventPublisher exposes the dispatcher through the publishing port
func ProvideEventPublisher(dispatcher *appevents.Dispatcher) ports.EventPublisher {
	return dispatcher
}

// ProvideLockManager creates the advisory lock manager
func ProvideLockManager(dc *domainconfig.DomainConfig, logger *zap.Logger) *lock.Manager {
	return lock.NewManager(dc.LockLease, logger)
}

// ProvideCardStore creates the in-memory card store
func ProvideCardStore(dc *domainconfig.DomainConfig, logger *zap.Logger) *store.CardStore {
	return store.NewCardStore(dc, logger)
}

// ProvideChannelFeed creates the remote change feed backing the internal
// replication callback endpoint
func ProvideChannelFeed() *feed.ChannelFeed {
	return feed.NewChannelFeed(0)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// Persistence bundles the configured sync adapter with the remote feeds the
// engine must consume
type Persistence struct {
	Adapter ports.SyncAdapter
	Feeds   []ports.RemoteFeed
}

// ProvidePersistence selects the persistence driver. The memory driver keeps
// everything in process and replays its own writes onto the remote feed; the
// dynamodb driver wraps the store client in a circuit breaker and relies on
// the replication callback endpoint for remote changes.
func ProvidePersistence(
	cfg *config.Config,
	client *awsdynamodb.Client,
	changeFeed *feed.ChannelFeed,
	logger *zap.Logger,
) *Persistence {
	if cfg.PersistenceDriver == "dynamodb" {
		adapter := persistence.NewBreakerAdapter(
			dynamopersist.NewSyncAdapter(client, cfg.DynamoDBTable, logger),
			logger,
		)
		return &Persistence{
			Adapter: adapter,
			Feeds:   []ports.RemoteFeed{changeFeed},
		}
	}

	mem := memory.NewSyncAdapter(logger)
	return &Persistence{
		Adapter: mem,
		Feeds:   []ports.RemoteFeed{mem, changeFeed},
	}
}

// ProvideSyncAdapter unwraps the persistence bundle for constructors that
// only need the adapter
func ProvideSyncAdapter(p *Persistence) ports.SyncAdapter {
	return p.Adapter
}

// ProvideEngine creates the drag engine
func ProvideEngine(
	cardStore *store.CardStore,
	locks *lock.Manager,
	adapter ports.SyncAdapter,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	dc *domainconfig.DomainConfig,
	logger *zap.Logger,
) *drag.Engine {
	return drag.NewEngine(cardStore, locks, adapter, publisher, metrics, dc, logger)
}

// ProvideIdeaSource creates the AI idea source when an API key is
// configured. Without a key, idea generation refuses with a validation
// error instead of failing at boot.
func ProvideIdeaSource(cfg *config.Config, logger *zap.Logger) ports.IdeaSource {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	return ai.NewOpenAISource(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
}

// ProvideIdeasService creates the idea card service
func ProvideIdeasService(
	cardStore *store.CardStore,
	locks *lock.Manager,
	adapter ports.SyncAdapter,
	publisher ports.EventPublisher,
	source ports.IdeaSource,
	dc *domainconfig.DomainConfig,
	logger *zap.Logger,
) *ideas.Service {
	return ideas.NewService(cardStore, locks, adapter, publisher, source, dc, logger)
}

// ProvideJWTValidator creates the JWT validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
}

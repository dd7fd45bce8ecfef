package framework

import (
	"context"
	"errors"
	"fmt"
	"log"

	"mb-route-sync/clients/consumer"
	"mb-route-sync/clients/mountebank"
	"mb-route-sync/clients/producer"
	"mb-route-sync/imposter"
	"mb-route-sync/routes"
	"mb-route-sync/store"
	"mb-route-sync/synchronizer"

	"golang.org/x/sync/errgroup"
)

// Framework holds all clients built from one config file.
type Framework struct {
	Config           *Config
	MountebankClient *mountebank.Client
	Synchronizer     *synchronizer.Synchronizer
	Producer         *producer.Producer // nil when kafka is disabled
	Store            store.Store
}

// NewFramework loads configPath and wires every client.
func NewFramework(configPath string) (*Framework, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load framework config: %w", err)
	}
	return New(cfg)
}

// New wires every client from an already validated config.
func New(cfg *Config) (*Framework, error) {
	f := &Framework{Config: cfg}

	// Initialize Mountebank Client
	f.MountebankClient = mountebank.NewClient(cfg.Mountebank.AdminURL(), cfg.Mountebank.Timeout())

	opts := []synchronizer.Option{synchronizer.WithCallTimeout(cfg.Mountebank.Timeout())}
	if cfg.Kafka.Enabled {
		p, err := producer.NewProducer(cfg.Kafka.BootstrapServers, cfg.Kafka.Producer.Topic)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
		}
		f.Producer = p
		opts = append(opts, synchronizer.WithPublisher(p))
	}
	f.Synchronizer = synchronizer.New(f.MountebankClient, opts...)

	switch cfg.Store.Driver {
	case "redis":
		f.Store = store.NewRedisStore(cfg.Store.Redis.Addr, cfg.Store.Redis.DB)
	default:
		f.Store = store.NewFileStore(cfg.Store.Dir)
	}
	return f, nil
}

// BuildImposter turns a definition into an Imposter. Nothing is pushed.
func (f *Framework) BuildImposter(def ImposterDefinition) (*imposter.Imposter, error) {
	imp, err := imposter.New(def.Port, def.Protocol, def.Name, f.Synchronizer)
	if err != nil {
		return nil, fmt.Errorf("invalid imposter definition for port %d: %w", def.Port, err)
	}
	for _, r := range def.Routes {
		headers := r.Response.Headers
		if headers == nil {
			headers = map[string]string{}
		}
		resp := routes.Response{StatusCode: r.Response.StatusCode, Headers: headers, Body: r.Response.Body}
		if err := imp.AddRoute(r.Path, r.Method, resp); err != nil {
			return nil, fmt.Errorf("invalid route %s %s for port %d: %w", r.Method, r.Path, def.Port, err)
		}
	}
	return imp, nil
}

// BuildImposters builds every imposter in the config, in config order.
func (f *Framework) BuildImposters() ([]*imposter.Imposter, error) {
	imps := make([]*imposter.Imposter, 0, len(f.Config.Imposters))
	for _, def := range f.Config.Imposters {
		imp, err := f.BuildImposter(def)
		if err != nil {
			return nil, err
		}
		imps = append(imps, imp)
	}
	return imps, nil
}

// CreateAll creates the imposters on the given ports (all configured ones
// when ports is empty) concurrently and saves a snapshot of each. A saved
// snapshot takes precedence over the configured definition.
func (f *Framework) CreateAll(ctx context.Context, ports ...int) error {
	if len(ports) == 0 {
		for _, def := range f.Config.Imposters {
			ports = append(ports, def.Port)
		}
	}
	imps := make([]*imposter.Imposter, 0, len(ports))
	for _, port := range ports {
		imp, err := f.LoadImposter(ctx, port)
		if err != nil {
			return err
		}
		imps = append(imps, imp)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, imp := range imps {
		g.Go(func() error {
			if _, err := imp.Create(ctx); err != nil {
				return fmt.Errorf("failed to create imposter %s: %w", imp.Descriptor(), err)
			}
			log.Printf("Imposter %s created with %d routes", imp.Descriptor(), len(imp.Entries()))
			return f.SaveImposter(ctx, imp)
		})
	}
	return g.Wait()
}

// LoadImposter returns the last saved state of the imposter on port, or the
// configured definition when nothing was saved yet.
func (f *Framework) LoadImposter(ctx context.Context, port int) (*imposter.Imposter, error) {
	snap, err := f.Store.Load(ctx, port)
	if err == nil {
		return imposter.Restore(snap.Descriptor, snap.Routes, f.Synchronizer)
	}
	if !errors.Is(err, store.ErrSnapshotNotFound) {
		return nil, err
	}
	def, ok := f.Config.Imposter(port)
	if !ok {
		return nil, fmt.Errorf("no saved or configured imposter on port %d", port)
	}
	log.Printf("DEBUG: No snapshot for port %d, using configured definition", port)
	return f.BuildImposter(def)
}

// SaveImposter stores the current local state of imp.
func (f *Framework) SaveImposter(ctx context.Context, imp *imposter.Imposter) error {
	snap := store.Snapshot{Descriptor: imp.Descriptor(), Routes: imp.Entries()}
	if err := f.Store.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save imposter %s: %w", imp.Descriptor(), err)
	}
	return nil
}

// ErrKafkaDisabled is returned by NewEventConsumer when kafka.enabled is off.
var ErrKafkaDisabled = errors.New("kafka is disabled in the config")

// NewEventConsumer reads the sync events this framework's producer writes.
func (f *Framework) NewEventConsumer(fromBeginning bool) (*consumer.Consumer, error) {
	if !f.Config.Kafka.Enabled {
		return nil, ErrKafkaDisabled
	}
	k := f.Config.Kafka
	return consumer.NewConsumer(k.BootstrapServers, k.Producer.Topic, k.Consumer.Group, fromBeginning)
}

// Close releases the Kafka producer, if any.
func (f *Framework) Close() error {
	if f.Producer != nil {
		return f.Producer.Close()
	}
	return nil
}

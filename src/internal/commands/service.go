package commands

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/multihome/mhroute/src/internal/api"
	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/service"
)

func CreateServiceCommand() *ServiceCommand {
	sc := &ServiceCommand{
		fs: flag.NewFlagSet("service", flag.ContinueOnError),
	}

	sc.fs.BoolVar(&sc.ipv4, "4", false, "Bind IPv4 endpoints")
	sc.fs.BoolVar(&sc.ipv6, "6", false, "Bind IPv6 endpoints")
	sc.fs.BoolVar(&sc.noAPI, "no-api", false, "Do not serve the status API")

	return sc
}

// ServiceCommand binds an endpoint on every interface, installs policy
// routing for them and serves the status API until SIGINT or SIGTERM.
type ServiceCommand struct {
	fs  *flag.FlagSet
	cfg *config.Config
	ctx *AppContext

	ipv4  bool
	ipv6  bool
	noAPI bool

	svc       *service.MultihomeService
	apiRunner *RestartableRunner
}

func (s *ServiceCommand) Name() string {
	return s.fs.Name()
}

func (s *ServiceCommand) Init(args []string, ctx *AppContext) error {
	s.ctx = ctx

	if err := s.fs.Parse(args); err != nil {
		return err
	}

	if !s.ipv4 && !s.ipv6 {
		s.ipv4, s.ipv6 = true, true
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		s.cfg = cfg
	}

	logConfigWarnings(s.cfg, ctx.catalog())
	return nil
}

func (s *ServiceCommand) Run() error {
	log.Infof("Starting mhroute service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	svc, err := service.NewDefaultMultihomeService(s.cfg, s.ctx.catalog())
	if err != nil {
		return err
	}
	s.svc = svc

	endpoints, err := svc.BindAll(ctx, s.ipv4, s.ipv6)
	if err != nil {
		s.shutdown()
		return err
	}
	if len(endpoints) == 0 {
		log.Warnf("No endpoints were bound, check that interfaces are up and have addresses")
	}
	for _, ep := range endpoints {
		log.Infof("Bound %s", ep)
	}

	if s.noAPI {
		log.Infof("Status API is disabled")
	} else if err := s.startAPIServer(ctx); err != nil {
		log.Errorf("Failed to start API server: %v", err)
		log.Warnf("Status API will not be available")
	}

	log.Infof("Service started successfully.")

	sig := <-sigChan
	log.Infof("Received signal %v, shutting down...", sig)
	s.shutdown()
	return nil
}

// startAPIServer serves the status API under a restartable runner.
func (s *ServiceCommand) startAPIServer(ctx context.Context) error {
	bindAddr := s.cfg.API.Listen
	log.Infof("Starting status API on %s", bindAddr)
	log.Infof("Access restricted to private subnets only:")
	log.Infof("  IPv4: 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, 127.0.0.0/8")
	log.Infof("  IPv6: fc00::/7, fe80::/10, ::1/128")

	handler := api.NewHandler(s.svc, s.cfg, service.NewValidationService(s.ctx.catalog()))
	server := api.NewServer(bindAddr, api.NewRouter(handler))

	s.apiRunner = NewRestartableRunner(RunnerConfig{
		Name:           "API server",
		RestartBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
	}, func(runCtx context.Context) error {
		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-runCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				log.Errorf("Error during API server shutdown: %v", err)
			}
			return <-errCh
		}
	})

	return s.apiRunner.Start(ctx)
}

// shutdown stops the API and removes every endpoint and routing table.
func (s *ServiceCommand) shutdown() {
	log.Infof("Shutting down mhroute service...")

	if s.apiRunner != nil {
		if err := s.apiRunner.Stop(15 * time.Second); err != nil {
			log.Errorf("Failed to stop API server: %v", err)
		}
	}

	if s.svc != nil {
		removed := s.svc.Shutdown()
		log.Infof("Removed %d routing tables", removed)
	}

	log.Infof("Service stopped successfully")
}

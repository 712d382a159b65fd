// README: Entry point; loads config, wires services, starts the dispatcher and HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"dispatchdesk/internal/config"
	httptransport "dispatchdesk/internal/http"
	"dispatchdesk/internal/infra"
	"dispatchdesk/internal/maps"
	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/modules/location"
	"dispatchdesk/internal/modules/matching"
	"dispatchdesk/internal/modules/notify"
	"dispatchdesk/internal/modules/order"
	"dispatchdesk/internal/modules/restaurant"
	"dispatchdesk/internal/modules/revenue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("DISPATCH_FIREBASE_PROJECT_ID is required")
	}
	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		log.Fatalf("firebase auth: %v", err)
	}

	var notifier matching.Notifier = notify.LogNotifier{}
	if cfg.Firebase.NotifyTopic != "" {
		client, err := infra.NewMessaging(ctx, app)
		if err != nil {
			log.Printf("firebase messaging unavailable, logging cues instead: %v", err)
		} else {
			notifier = notify.NewFCMNotifier(client, cfg.Firebase.NotifyTopic)
		}
	}

	if cfg.DB.Migrate {
		if err := infra.Migrate(cfg.DB.DSN); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	orderSvc := order.NewService(order.NewStore(dbPool))
	driverSvc := driver.NewService(driver.NewStore(dbPool), orderSvc)
	locationSvc := location.NewService(location.NewStore(dbPool, redisClient))
	revenueSvc := revenue.NewService(revenue.NewStore(dbPool))
	targets := matching.NewTargetResolver(restaurant.NewStore(dbPool))

	matchingStore := matching.NewStore(redisClient)
	committer := matching.NewCommitter(orderSvc, notifier, matchingStore)
	tracker := matching.NewTracker()
	dispatcher := matching.NewDispatcher(matching.DispatcherDeps{
		Orders:    orderSvc,
		Drivers:   driverSvc,
		Targets:   targets,
		Committer: committer,
		Notifier:  notifier,
		Selector:  matching.NewSelector(nil),
		Tracker:   tracker,
		Interval:  cfg.Dispatch.PollInterval(),
	})

	deps := matching.ServiceDeps{
		Store:      matchingStore,
		Orders:     orderSvc,
		Drivers:    driverSvc,
		Targets:    targets,
		Committer:  committer,
		Tracker:    tracker,
		Dispatcher: dispatcher,
	}
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Printf("maps disabled: %v", err)
		} else {
			deps.Drive = routes
		}
	}
	matchingSvc := matching.NewService(deps)
	on := matchingSvc.RestoreAutoPilot(ctx, cfg.Dispatch.AutoPilot)
	log.Printf("dispatch: auto-pilot=%v interval=%s", on, cfg.Dispatch.PollInterval())

	var changes <-chan string
	if cfg.Dispatch.ListenChanges {
		changes = infra.ListenTableChanges(ctx, dbPool, "orders", "driver")
	}
	go dispatcher.Run(ctx, changes)

	gin.SetMode(gin.ReleaseMode)
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier: verifier,
		Dispatch: matchingSvc,
		Orders:   orderSvc,
		Drivers:  driverSvc,
		Nearby:   locationSvc,
		Location: locationSvc,
		Revenue:  revenueSvc,
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}()

	log.Printf("http: listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"firecontrol/src/controller"
	"firecontrol/src/dispatch"
	"firecontrol/src/firecmd"
	"firecontrol/src/gate"
	"firecontrol/src/handler"
	"firecontrol/src/pricefeed"
	"firecontrol/src/repository"
	"firecontrol/src/slots"
)

// buildController assembles the production admission pipeline from the
// package configs and repositories.
func buildController() (*controller.FireController, *slots.Manager, *repository.UserRepository, *repository.MirrorRepository) {
	userRepo := repository.NewUserRepository()
	leaseRepo := repository.NewLeaseRepository()
	statusRepo := repository.NewStatusRepository()
	mirrorRepo := repository.NewMirrorRepository()
	exceptionRepo := repository.NewExceptionRepository()
	exposureRepo := repository.NewExposureRepository()

	fireConfig := firecmd.GetConfig()

	admissionGate := gate.New(exposureRepo, gate.GetConfig())
	manager := slots.NewManager(leaseRepo, slots.GetConfig())
	builder := firecmd.NewBuilder(fireConfig)
	dispatcher := dispatch.New(dispatch.GetConfig())
	prices := pricefeed.NewBinanceSource(pricefeed.GetConfig())

	fireController := controller.NewFireController(
		userRepo,
		statusRepo,
		mirrorRepo,
		exceptionRepo,
		admissionGate,
		manager,
		builder,
		dispatcher,
		prices,
		fireConfig.DefaultRiskFraction,
	)

	return fireController, manager, userRepo, mirrorRepo
}

func StartServer(port string) {
	fireController, manager, userRepo, mirrorRepo := buildController()

	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("healthcheck write failed")
		}
	})

	r.Post("/fire", handler.FireHandler(fireController))
	r.Get("/users/{userID}/slots", handler.LeaseStateHandler(manager))
	r.Post("/users/{userID}/missions/{missionID}/close", handler.CloseLeaseHandler(fireController))
	r.Post("/users/{userID}/missions/{missionID}/release", handler.ForceReleaseHandler(fireController, userRepo))
	r.Get("/users/{userID}/missions/{missionID}/mirror", handler.MirrorHandler(mirrorRepo))

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}

package sweeper

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"firecontrol/src/database"
	"firecontrol/src/reconciler"
	"firecontrol/src/repository"
)

// Sweeper runs the slot-reconciliation loop as a standalone process, apart
// from the HTTP server, so a busy request path never starves the sweep.
type Sweeper struct {
}

func (t *Sweeper) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	// Initialize read-only database
	if err := database.InitReadOnlyDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to read-only database")
		return err
	}

	leaseRepo := repository.NewLeaseRepository()
	statusRepo := repository.NewStatusRepository()
	mirrorRepo := repository.NewMirrorRepository()
	userRepo := repository.NewUserRepository()

	service := reconciler.NewService(
		leaseRepo,
		leaseRepo,
		statusRepo,
		mirrorRepo,
		userRepo,
		reconciler.GetConfig(),
	)

	if err := service.StartLoop(ctx); err != nil {
		logrus.WithError(err).Error("Reconciliation loop exited with error")
		return err
	}

	return nil
}

// RunOnce performs a single sweep and exits, for ad hoc operator use.
func (t *Sweeper) RunOnce() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}
	if err := database.InitReadOnlyDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to read-only database")
		return err
	}

	leaseRepo := repository.NewLeaseRepository()

	service := reconciler.NewService(
		leaseRepo,
		leaseRepo,
		repository.NewStatusRepository(),
		repository.NewMirrorRepository(),
		repository.NewUserRepository(),
		reconciler.GetConfig(),
	)

	return service.Sweep(ctx)
}

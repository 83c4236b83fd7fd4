package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application. All loops observe the
// shared stop signal between iterations; in-flight work gets the configured
// grace period, after which the shutdown reports failure so the process
// exits non-zero.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Stop signal for every worker loop; push transports close immediately
	// as the orchestrator unwinds.
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
	defer shutdownCancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(a.cfg.ShutdownGracePeriod):
		a.logger.Error("shutdown-deadline-exceeded",
			zap.Duration("grace-period", a.cfg.ShutdownGracePeriod))
		return fmt.Errorf("shutdown deadline exceeded after %s", a.cfg.ShutdownGracePeriod)
	}

	err = a.store.Close()
	if err != nil {
		a.logger.Error("store-close-error", zap.Error(err))
	}

	a.appCache.Close()

	a.logger.Info("application-shutdown-complete")

	return nil
}

package bot

import (
	"context"
	"net/http"
	"time"

	"github.com/ytget/coursegrab/internal/logger"
)

const healthShutdownTimeout = 5 * time.Second

// StartHealthServer runs a minimal liveness endpoint on the given port and
// shuts it down when the context ends. Hosting platforms use it to confirm
// the process is up.
func StartHealthServer(ctx context.Context, port string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), healthShutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info("health endpoint listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", "error", err)
		}
	}()
}

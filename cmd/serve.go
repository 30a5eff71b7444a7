package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/server"
	"github.com/AyushAagrwal/DataStatX/internal/session"
)

var (
	serveAddr       string
	serveProvider   string
	serveOllamaHost string
	serveModel      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DataStatX web app and JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			c.ServerAddr = serveAddr
		}
		if !debug {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx := cmd.Context()
		st, err := openStore(ctx, c)
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := newBridge(c, st, log, pipelineOptions{
			Runtime: runtimeOptions{ProviderFlag: serveProvider, OllamaHost: serveOllamaHost},
			Method:  c.SummaryMethod,
			TextGen: textGenConfig(c, serveModel, 0, 0, false),
		})
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		router, err := server.New(server.Deps{
			Config:   c,
			Log:      log,
			Sessions: session.NewManager(st, c.SessionTTL(), opt),
			Bridge:   b,
			Store:    st,
		})
		if err != nil {
			return err
		}
		srv := router.HTTPServer(c.ServerAddr)

		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", c.ServerAddr).Info("HTTP server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case err := <-errCh:
			return err
		case sig := <-quit:
			log.WithField("signal", sig.String()).Info("Shutting down server")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server forced to shutdown")
			return err
		}
		log.WithFields(logrus.Fields{"addr": c.ServerAddr}).Info("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8501)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "provider: openai|openrouter|ollama (default from config)")
	serveCmd.Flags().StringVar(&serveOllamaHost, "ollama-host", "", "Ollama host when --provider ollama")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "model name (default from config)")
}

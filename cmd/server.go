package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alist-org/arkit/cmd/flags"
	"github.com/alist-org/arkit/internal/conf"
	"github.com/alist-org/arkit/pkg/utils"
	"github.com/alist-org/arkit/server"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:     "server",
		Aliases: []string{"serve"},
		Short: "Start the read-only archive inspection server",
		Long:    "Serve archive listings and item downloads for archives below the configured root over HTTP.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	})
}

func runServer() error {
	lib, err := openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()
	if !flags.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.LoggerWithWriter(log.StandardLogger().Out), gin.RecoveryWithWriter(log.StandardLogger().Out))
	server.Init(r, lib)

	addr := fmt.Sprintf("%s:%d", conf.Conf.Scheme.Address, conf.Conf.Scheme.HttpPort)
	utils.Log.Infof("start HTTP server @ %s, serving %s", addr, conf.Conf.Scheme.Root)
	srv := &http.Server{Addr: addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return errors.WithMessage(err, "failed to start http")
	case <-quit:
	}
	utils.Log.Println("Shutdown server...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Log.Errorf("failed to shutdown http server: %s", err.Error())
	}
	utils.Log.Println("Server exit")
	return nil
}

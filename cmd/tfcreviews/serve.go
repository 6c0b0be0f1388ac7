// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdhender/tfcreviews/importer"
	"github.com/mdhender/tfcreviews/reviews"
	"github.com/mdhender/tfcreviews/web/handlers"
	"github.com/spf13/cobra"
)

func cmdServe() *cobra.Command {
	addr := ""
	importEvery := time.Duration(0)
	timeout := time.Duration(0)
	var cmd = &cobra.Command{
		Use:          "serve",
		Short:        "serve the review API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			admin := a.admin()
			if !admin.Enabled() {
				log.Printf("server: admin password not set, admin routes are disabled\n")
			}

			imp := a.importer(cmd)
			h := handlers.New(a.reviews, imp, a.store, admin)

			server := &http.Server{
				Addr:         addr,
				Handler:      h.Router(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: a.cfg.Provider.Timeout + 15*time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := context.WithCancel(context.Background())
			defer stop()
			go importer.NewScheduler(imp, importEvery, reviews.DefaultType, "").Start(ctx)

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

			if timeout > 0 {
				go func() {
					log.Printf("server: will auto-shutdown in %v\n", timeout)
					time.Sleep(timeout)
					log.Printf("server: timeout reached, initiating shutdown\n")
					shutdown <- os.Interrupt
				}()
			}

			go func() {
				log.Printf("server: listening on %s\n", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Printf("server: %v\n", err)
					shutdown <- os.Interrupt
				}
			}()

			<-shutdown
			log.Printf("server: shutting down gracefully\n")
			stop()

			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(sctx); err != nil {
				return fmt.Errorf("server: shutdown error: %w", err)
			}

			log.Printf("server: stopped\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", addr, "HTTP listen address (overrides config)")
	cmd.Flags().DurationVar(&importEvery, "import-every", importEvery, "run a cron import on this interval (0 disables)")
	cmd.Flags().DurationVar(&timeout, "timeout", timeout, "auto-shutdown after duration (e.g., 5s, 1m)")
	return cmd
}

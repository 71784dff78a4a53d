// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mattermost/paybridge/internal/api"
	"github.com/mattermost/paybridge/internal/common"
	"github.com/mattermost/paybridge/internal/payment"
	"github.com/mattermost/paybridge/internal/store"
	"github.com/mattermost/paybridge/internal/supervisor"
)

const (
	databaseFlag             = "database"
	listenFlag               = "listen"
	debugFlag                = "debug"
	pendingSweepAfterFlag    = "pending-sweep-after"
	pendingSweepIntervalFlag = "pending-sweep-interval"
	archiveBucketFlag        = "archive-bucket"
	archivePrefixFlag        = "archive-prefix"
	archiveIntervalFlag      = "archive-interval"
	archiveSettleFlag        = "archive-settle-delay"

	defaultDatabase = "postgres://localhost:5432/paybridge?sslmode=disable"
)

func addServerFlags(flags *pflag.FlagSet) {
	flags.String(listenFlag, "localhost:8077", "Local interface and port to listen on")
	flags.String(databaseFlag, defaultDatabase, "Location of a Postgres database for the server to use")
	flags.Bool(debugFlag, false, "Whether to output debug logs")
	flags.Duration(pendingSweepAfterFlag, 0, "Query push payments still pending after this long; 0 disables the sweep")
	flags.Duration(pendingSweepIntervalFlag, time.Minute, "How often to look for stale pending transactions")
	flags.String(archiveBucketFlag, "", "S3 bucket receiving callback archives; empty disables archiving")
	flags.String(archivePrefixFlag, "callbacks", "Key prefix of callback archives")
	flags.Duration(archiveIntervalFlag, 5*time.Minute, "How often to archive new callback records")
	flags.Duration(archiveSettleFlag, time.Minute, "How long a callback record waits before the archive skips a missing sequence before it")
	addProviderFlags(flags)
	addPaymentFlags(flags)
}

func init() {
	addServerFlags(serverCmd.Flags())
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the paybridge server.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true
		flags := command.Flags()

		debug, _ := flags.GetBool(debugFlag)
		if debug {
			logger.SetLevel(logrus.DebugLevel)
		}

		listen, _ := flags.GetString(listenFlag)
		if listen == "" {
			return errors.Errorf("the server command requires the --%s flag not be empty", listenFlag)
		}

		provider, err := getProviderConfig(command)
		if err != nil {
			return err
		}

		sqlStore, err := sqlStore(command)
		if err != nil {
			return err
		}
		defer sqlStore.Close()

		currentVersion, err := sqlStore.CurrentVersion()
		if err != nil {
			return err
		}
		if currentVersion.LT(store.LatestVersion()) {
			return errors.Errorf("schema is at version %s but %s is required; run schema migrate first", currentVersion, store.LatestVersion())
		}

		pendingSweepAfter, _ := flags.GetDuration(pendingSweepAfterFlag)
		pendingSweepInterval, _ := flags.GetDuration(pendingSweepIntervalFlag)
		archiveBucket, _ := flags.GetString(archiveBucketFlag)
		archivePrefix, _ := flags.GetString(archivePrefixFlag)
		archiveInterval, _ := flags.GetDuration(archiveIntervalFlag)
		archiveSettle, _ := flags.GetDuration(archiveSettleFlag)

		logger.WithFields(logrus.Fields{
			"listen":              listen,
			"api-url":             provider.baseURL,
			"short-code":          provider.shortCode,
			"callback-url":        provider.callbackURL,
			"request-timeout":     provider.timeout,
			"pending-sweep-after": pendingSweepAfter,
			"archive-bucket":      archiveBucket,
			"schema-version":      currentVersion.String(),
			"debug":               debug,
		}).Info("Starting paybridge server")

		client := buildProviderClient(provider)
		initiator := payment.NewInitiator(sqlStore, client, initiatorOptions(command, provider), logger)
		reconciler := payment.NewReconciler(sqlStore, logger)
		registrar := payment.NewRegistrar(client, payment.RegistrarOptions{
			ShortCode:       provider.shortCode,
			CallbackBaseURL: provider.callbackURL,
		}, logger)

		if pendingSweepAfter > 0 {
			pendingSupervisor := supervisor.NewPendingSupervisor(sqlStore, initiator, reconciler, supervisor.PendingSupervisorOptions{
				After:    pendingSweepAfter,
				Interval: pendingSweepInterval,
				Timeout:  provider.timeout,
			}, logger)
			pendingSupervisor.Start()
			defer pendingSupervisor.Stop()
		}

		if archiveBucket != "" {
			awsConfig, err := common.NewAWSConfig(context.Background())
			if err != nil {
				return errors.Wrap(err, "failed to load AWS configuration")
			}
			archive := common.NewS3Archive(awsConfig, archiveBucket, archivePrefix)
			err = archive.CheckBucket(context.Background())
			if err != nil {
				return err
			}
			archiveSupervisor := supervisor.NewArchiveSupervisor(sqlStore, archive, supervisor.ArchiveSupervisorOptions{
				Interval:    archiveInterval,
				SettleDelay: archiveSettle,
			}, logger)
			archiveSupervisor.Start()
			defer archiveSupervisor.Stop()
		}

		router := mux.NewRouter()
		api.Register(router, &api.Context{
			Store:     sqlStore,
			Payments:  initiator,
			Callbacks: reconciler,
			Registrar: registrar,
			Logger:    logger,
		})

		srv := &http.Server{
			Addr:           listen,
			Handler:        router,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   2 * provider.timeout,
			IdleTimeout:    180 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}

		go func() {
			logger.WithField("addr", srv.Addr).Info("Listening")
			err := srv.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("Failed to listen and serve")
			}
		}()

		c := make(chan os.Signal, 1)
		// We'll accept graceful shutdowns when quit via:
		//  - SIGINT (Ctrl+C)
		//  - SIGTERM (Kubernetes pod rolling termination)
		// SIGKILL and SIGQUIT will not be caught.
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		sig := <-c
		logger.WithField("shutdown-signal", sig.String()).Info("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func initiatorOptions(command *cobra.Command, provider *providerConfig) payment.InitiatorOptions {
	flags := command.Flags()
	options := payment.InitiatorOptions{
		ShortCode:       provider.shortCode,
		CallbackBaseURL: provider.callbackURL,
	}
	options.Passkey, _ = flags.GetString(passkeyFlag)
	options.TransactionType, _ = flags.GetString(transactionTypeFlag)
	options.B2CShortCode, _ = flags.GetString(b2cShortCodeFlag)
	options.InitiatorName, _ = flags.GetString(initiatorNameFlag)
	options.SecurityCredential, _ = flags.GetString(securityCredFlag)
	options.CommandID, _ = flags.GetString(commandIDFlag)

	return options
}

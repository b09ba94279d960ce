package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/follow-sift/fsift/internal/server"
	"github.com/follow-sift/fsift/internal/session"
	"github.com/follow-sift/fsift/internal/storage"
)

const (
	commandUse              = "server"
	commandShortDescription = "Serve the follow-back review workflow over HTTP"
	envPrefix               = "FSIFT_SERVER"
	flagHostName            = "host"
	flagHostDescription     = "Host interface for the HTTP server"
	flagPortName            = "port"
	flagPortDescription     = "Port for the HTTP server"
	flagStoreName           = "store"
	flagStoreDescription    = "Path to the SQLite store (empty keeps state in memory)"
	defaultHost             = "127.0.0.1"
	defaultPort             = 8080
	defaultStorePath        = "fsift.db"

	errMessageLoggerCreate   = "create logger"
	errMessageStoreOpen      = "open store"
	errMessageListenAndServe = "listen and serve"

	logMessageOpeningStore    = "opening durable store"
	logMessageSessionRestored = "restored saved review session"
	logMessageStartingServer  = "starting HTTP server"
	logMessageServerStopped   = "server stopped"
	logMessageListenError     = "server listen failure"
	logFieldAddress           = "address"
	logFieldStorePath         = "path"
	logFieldSessionStep       = "step"
	logFieldSessionProcessed  = "processed"
	logFieldSessionTotal      = "total"
)

func main() {
	cobra.CheckErr(newServerCommand().Execute())
}

func newServerCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runServerCommand,
	}

	command.Flags().String(flagHostName, defaultHost, flagHostDescription)
	command.Flags().Int(flagPortName, defaultPort, flagPortDescription)
	command.Flags().String(flagStoreName, defaultStorePath, flagStoreDescription)

	bindFlagToViper(command, flagHostName)
	bindFlagToViper(command, flagPortName)
	bindFlagToViper(command, flagStoreName)

	cobra.OnInitialize(configureEnvironment)

	return command
}

func bindFlagToViper(command *cobra.Command, flagName string) {
	cobra.CheckErr(viper.BindPFlag(flagName, command.Flags().Lookup(flagName)))
}

func configureEnvironment() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func runServerCommand(*cobra.Command, []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	gateway, cleanup, gatewayErr := openGateway(viper.GetString(flagStoreName), logger)
	if gatewayErr != nil {
		return fmt.Errorf("%s: %w", errMessageStoreOpen, gatewayErr)
	}
	defer cleanup()

	sessionStore := storage.NewEnvelopeStore(gateway, storage.SessionKey, storage.DefaultTimeToLive)
	manager := session.NewManager(session.ManagerConfig{Store: sessionStore, Logger: logger})
	if manager.Restore() {
		snapshot := manager.Snapshot()
		logger.Info(logMessageSessionRestored,
			zap.String(logFieldSessionStep, string(manager.Step())),
			zap.Int(logFieldSessionProcessed, snapshot.Stats.Processed),
			zap.Int(logFieldSessionTotal, snapshot.Stats.Total),
		)
	}
	doneStore := storage.NewDoneStore(gateway, logger)

	router, err := server.NewRouter(server.RouterConfig{
		Manager:   manager,
		DoneStore: doneStore,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	host := viper.GetString(flagHostName)
	port := viper.GetInt(flagPortName)
	address := fmt.Sprintf("%s:%d", host, port)
	logger.Info(logMessageStartingServer, zap.String(logFieldAddress, address))

	httpServer := &http.Server{Addr: address, Handler: router}
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(logMessageListenError, zap.Error(err))
		return fmt.Errorf("%s: %w", errMessageListenAndServe, err)
	}

	logger.Info(logMessageServerStopped)
	return nil
}

func openGateway(storePath string, logger *zap.Logger) (storage.Gateway, func(), error) {
	if strings.TrimSpace(storePath) == "" {
		return storage.NewMemoryStore(), func() {}, nil
	}
	logger.Info(logMessageOpeningStore, zap.String(logFieldStorePath, storePath))
	sqliteStore, openErr := storage.OpenSQLite(storePath)
	if openErr != nil {
		return nil, nil, openErr
	}
	return sqliteStore, func() { _ = sqliteStore.Close() }, nil
}

package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Jansyler/Rigradar/internal/client"
	"github.com/Jansyler/Rigradar/internal/configuration"
	"github.com/Jansyler/Rigradar/internal/database"
	"github.com/Jansyler/Rigradar/internal/logger"
	"github.com/Jansyler/Rigradar/internal/server"
	"github.com/Jansyler/Rigradar/internal/watchdog"
)

func main() {
	if err := runApp(); err != nil {
		time.Sleep(10 * time.Second)
		os.Exit(1)
	}
}

func runApp() error {
	appContext := context.Background()
	logOutput := io.Writer(os.Stdout)
	appLogger := logger.NewLogger(logger.LevelError, logOutput)

	defer func() {
		if r := recover(); r != nil {
			appLogger.Errorf("APPLICATION CRASHED: %+v", r)
		}
	}()

	config, err := configuration.GetConfig("config.toml")
	if err != nil {
		appLogger.Error("Error getting configuration from config.toml:", err)
		return err
	}

	if config.LogToFile {
		logFile, err := os.OpenFile("rigradar_backend.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			appLogger.Error("Error opening log file:", err)
			return err
		}
		defer func() {
			if err := logFile.Close(); err != nil {
				appLogger.Error("Error closing log file:", err)
			}
		}()
		logOutput = io.MultiWriter(logOutput, logFile)
	}
	appLogger = logger.NewLogger(config.LogLevel, logOutput)

	if config.LogLevel >= logger.LevelDebug {
		conf, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			appLogger.Error("Error marshalling Config to JSON:", err)
			return err
		}
		appLogger.Debugf("Config:\n%s", conf)
	}

	appLogger.Info("Connecting to Redis at", config.RedisURI)
	dbConn, err := database.ConnectDB(appContext, config.RedisURI)
	if err != nil {
		appLogger.Error("Error connecting to Redis:", err)
		return err
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			appLogger.Error("Error disconnecting from Redis:", err)
		}
	}()

	db := database.Database{Client: dbConn}
	cl := client.Client{
		Client:       &http.Client{Timeout: 15 * time.Second},
		ResendAPIKey: config.ResendAPIKey,
		Logger:       appLogger,
	}
	engine := watchdog.Engine{
		Registry: db,
		History:  db,
		Queue:    db,
		Alerts: server.AlertMailer{
			Client:  cl,
			From:    config.AlertEmailFrom,
			SiteURL: config.SiteURL,
			Logger:  appLogger,
		},
		Logger:        appLogger,
		HistoryWindow: config.HistoryWindow,
	}
	srv := server.Server{
		DB:          db,
		Engine:      engine,
		Logger:      appLogger,
		CronSecret:  config.CronSecret,
		RadarAPIKey: config.RadarAPIKey,
		SiteURL:     config.SiteURL,
	}

	if config.EvaluateInterval > 0 {
		appLogger.Info("Starting watchdog evaluator with interval:", config.EvaluateInterval)
		go srv.EvaluateInInterval(appContext, time.NewTicker(config.EvaluateInterval))
	}

	httpSrv := &http.Server{
		Handler:      srv.Router(),
		Addr:         config.ServerAddress,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	appLogger.Info("Serving on", httpSrv.Addr)
	err = httpSrv.ListenAndServe()
	appLogger.Error("Server stopped:", err)
	return err
}

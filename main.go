package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"cornerstone/db"
	qhttp "cornerstone/http"
	"cornerstone/inference"
	"cornerstone/logging"
)

type Config struct {
	Http struct {
		Port  int  `yaml:"port"`
		Debug bool `yaml:"debug"`
	} `yaml:"http"`
	Data struct {
		Dir      string `yaml:"dir"`
		TrainCSV string `yaml:"train_csv"`
	} `yaml:"data"`
	History struct {
		Path string `yaml:"path"`
	} `yaml:"history"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.Log.Level, config.Log.File)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Optional prediction history store
	if config.History.Path != "" {
		if err := db.InitDB(config.History.Path); err != nil {
			logger.Fatal("failed to initialize history store", zap.Error(err))
		}
		defer db.Close()
		logger.Info("history store initialized", zap.String("path", config.History.Path))
		if records, err := db.QueryRecentPredictions(5); err == nil && len(records) > 0 {
			logger.Info("prediction history resumed",
				zap.Int("recent", len(records)),
				zap.Float64("last_value", records[0].Value),
				zap.Time("last_at", records[0].CreatedAt))
		}
	}

	// 3. Load inference artifacts, once, for the process lifetime
	service := inference.Initialize(config.Data.Dir, logger)

	// 4. Start HTTP server
	qhttp.SetLogger(logger)
	qhttp.SetInferenceService(service)

	serverConfig := qhttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	serverConfig.BaseDir = config.Data.Dir
	serverConfig.Debug = config.Http.Debug

	server, err := qhttp.NewServer(serverConfig)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}

func loadConfig(path string) (*Config, error) {
	// Look for config in root even if run from a subdirectory
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join("..", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	if config.Data.Dir == "" {
		config.Data.Dir = "."
	}
	if config.Data.TrainCSV == "" {
		config.Data.TrainCSV = "train.csv"
	}
	return &config, nil
}

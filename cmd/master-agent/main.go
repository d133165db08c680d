package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pokedexai/pokedex-agents/internal/config"
	"github.com/pokedexai/pokedex-agents/internal/coordinator"
	"github.com/pokedexai/pokedex-agents/internal/llm"
	"github.com/pokedexai/pokedex-agents/pkg/utils"
)

func main() {
	configFile := flag.String("config", "configs/master-agent.yaml", "Path to configuration file")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logger.Info("Starting Master Agent")

	appConfig, err := config.LoadConfig(*configFile, logger)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger = utils.ConfigureLogger(appConfig.Logging)

	var router llm.Router
	if appConfig.LLM.Enabled {
		openaiRouter := llm.NewOpenAIRouter(
			appConfig.LLM.Model,
			appConfig.LLM.APIKey,
			llm.RoutingInstructions(coordinator.PokemonAgent, coordinator.PokedexAssistant),
			[]string{coordinator.PokemonAgent, coordinator.PokedexAssistant},
			logger,
		)
		if openaiRouter != nil {
			router = openaiRouter
		}
	}
	if router == nil {
		logger.Warn("No router available, every request will go to the basic-info specialist")
	}

	master, err := coordinator.New(appConfig, router, logger)
	if err != nil {
		logger.Fatalf("Failed to create coordinator: %v", err)
	}

	if err := master.Start(); err != nil {
		logger.Fatalf("Failed to start coordinator: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Received shutdown signal")

	if err := master.Stop(); err != nil {
		logger.Errorf("Error stopping coordinator: %v", err)
	}

	logger.Info("Coordinator shutdown complete")
}

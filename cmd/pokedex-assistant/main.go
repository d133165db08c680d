package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pokedexai/pokedex-agents/internal/agent"
	"github.com/pokedexai/pokedex-agents/internal/config"
	"github.com/pokedexai/pokedex-agents/internal/pokeapi"
	"github.com/pokedexai/pokedex-agents/internal/pokedex"
	"github.com/pokedexai/pokedex-agents/pkg/utils"
)

const instructions = `You are the Pokedex analytics specialist. You compare Pokemon stats,
compute type effectiveness, generate trivia, rank Pokemon by a stat, and
build and analyze teams. Always ground your answers in tool results;
present numbers exactly as the tools report them. When a tool reports an
error for a Pokemon, mention it and carry on with the rest of the answer.
Ask for clarification when the request does not name enough Pokemon or a
concrete stat to work with.`

func main() {
	configFile := flag.String("config", "configs/pokedex-assistant.yaml", "Path to configuration file")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logger.Info("Starting Pokedex Assistant")

	appConfig, err := config.LoadConfig(*configFile, logger)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger = utils.ConfigureLogger(appConfig.Logging)

	client := pokeapi.NewClient(appConfig.PokeAPI.BaseURL, logger)

	definitions := pokedex.AnalyticsTools(client)
	definitions = append(definitions, pokedex.TeamTools(client)...)

	assistant, err := agent.NewAgent(agent.Config{
		AppConfig:    appConfig,
		Instructions: instructions,
		Definitions:  definitions,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create agent: %v", err)
	}

	if err := assistant.Start(); err != nil {
		logger.Fatalf("Failed to start agent: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Received shutdown signal")

	if err := assistant.Stop(); err != nil {
		logger.Errorf("Error stopping agent: %v", err)
	}

	logger.Info("Agent shutdown complete")
}

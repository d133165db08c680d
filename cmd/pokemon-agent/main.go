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

const instructions = `You are the Pokemon information specialist. You answer questions about
individual Pokemon: their stats, types, abilities, species details and
flavor text, and you can search the Pokedex by name. Use your tools for
every factual claim; never invent Pokemon data. If a Pokemon cannot be
found, say so plainly. When the request is too ambiguous to act on, ask
for clarification instead of guessing.`

func main() {
	configFile := flag.String("config", "configs/pokemon-agent.yaml", "Path to configuration file")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logger.Info("Starting Pokemon Agent")

	appConfig, err := config.LoadConfig(*configFile, logger)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger = utils.ConfigureLogger(appConfig.Logging)

	client := pokeapi.NewClient(appConfig.PokeAPI.BaseURL, logger)

	pokemonAgent, err := agent.NewAgent(agent.Config{
		AppConfig:    appConfig,
		Instructions: instructions,
		Definitions:  pokedex.BasicInfoTools(client),
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create agent: %v", err)
	}

	if err := pokemonAgent.Start(); err != nil {
		logger.Fatalf("Failed to start agent: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Received shutdown signal")

	if err := pokemonAgent.Stop(); err != nil {
		logger.Errorf("Error stopping agent: %v", err)
	}

	logger.Info("Agent shutdown complete")
}

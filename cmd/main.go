package main

import (
	"log"

	"github.com/alecthomas/kingpin/v2"

	"gitlabanalyzer/service"
)

var (
	envFile  = kingpin.Flag("env-file", "path to the .env file").Short('e').Default(".env").String()
	logLevel = kingpin.Flag("log-level", "overrides LOG_LEVEL").Short('l').Enum("", "debug", "info", "warn", "error")
)

func main() {
	kingpin.Parse()

	ser, err := service.NewService(*envFile, *logLevel)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}
	defer func() {
		if err := ser.Close(); err != nil {
			log.Printf("Error during service shutdown: %v", err)
		}
	}()

	if err := ser.Start(); err != nil {
		log.Printf("Service error: %v", err)
	}
}

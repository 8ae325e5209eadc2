package common

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/songquanpeng/litegate/common/config"
	"github.com/songquanpeng/litegate/common/logger"
)

var (
	Port         = flag.Int("port", 3000, "the listening port")
	PrintVersion = flag.Bool("version", false, "print version and exit")
	PrintHelp    = flag.Bool("help", false, "print help and exit")
	LogDir       = flag.String("log-dir", "", "specify the log directory")
	ModelConfig  = flag.String("config", "", "path of the YAML model deployment file")
)

func printHelp() {
	fmt.Println("litegate " + Version + " - LLM gateway with unified usage accounting and response caching.")
	fmt.Println("Usage: litegate [--port <port>] [--log-dir <log directory>] [--config <models.yaml>] [--version] [--help]")
}

// Init parses command line flags and prepares the log directory.
// Flags win over environment variables, which win over defaults.
func Init() {
	flag.Parse()

	if *PrintVersion {
		fmt.Println(Version)
		os.Exit(0)
	}

	if *PrintHelp {
		printHelp()
		os.Exit(0)
	}

	if *ModelConfig != "" {
		config.ModelConfigPath = *ModelConfig
	}

	logDir := *LogDir
	if logDir == "" {
		logDir = os.Getenv("LOG_DIR")
	}
	if logDir != "" {
		var err error
		logDir, err = filepath.Abs(logDir)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			err = os.MkdirAll(logDir, 0777)
			if err != nil {
				log.Fatal(err)
			}
		}
		logger.LogDir = logDir
	}
}

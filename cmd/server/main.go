package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ayumu-t/minigames-server/internal/config"
	"github.com/ayumu-t/minigames-server/internal/game"
	"github.com/ayumu-t/minigames-server/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`minigames-server - Real-time two-player mini-game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT            Port to listen on (default: 8080)
  EXPORT_ENABLED  Append finished match results to a file (default: false)
  EXPORT_FILE     Path for the results file (default: ./match-results.txt)

Clients pair up by entering a shared passphrase, then pick one of the
bundled games: number guessing, hit & blow, card duel or hanabi.
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("minigames-server %s\n", version)
		return
	}

	// Config
	cfg := config.FromEnv()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Pairing registry + socket server
	registry := game.NewRegistry()
	sock := ws.New(registry, cfg)
	io := sock.Mount(r)
	defer io.Close()

	// Minimal ops endpoint
	r.GET("/api/stats", func(c *gin.Context) {
		rooms, waiting := registry.Stats()
		c.JSON(http.StatusOK, gin.H{"rooms": rooms, "waiting": waiting})
	})

	log.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

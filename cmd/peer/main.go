package main

import (
	"bufio"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mpatti/flagdash/arena"
	"github.com/mpatti/flagdash/bot"
	"github.com/mpatti/flagdash/game"
	"github.com/mpatti/flagdash/logger"
	"github.com/mpatti/flagdash/network"
)

func main() {
	godotenv.Load()
	logger.Init()

	var (
		relayURL = flag.String("relay", envOr("PEER_RELAY", "http://localhost:8973"), "relay base URL")
		room     = flag.String("room", envOr("PEER_ROOM", "lobby"), "room to join")
		name     = flag.String("name", envOr("PEER_NAME", ""), "display name")
		modeStr  = flag.String("mode", envOr("PEER_MODE", "2d"), "match mode: 2d or 3d")
		botPlay  = flag.Bool("bot", false, "drive the local player with the bot policy")
		fill     = flag.Int("fill", envIntOr("PEER_FILL", 0), "bot players the host pads the match with")
		size     = flag.Int("size", envIntOr("PEER_SIZE", 0), "players needed to start (0 = full 3v3)")
	)
	flag.Parse()

	mode := game.Mode2D
	if strings.EqualFold(*modeStr, "3d") {
		mode = game.Mode3D
	}

	tr, err := network.DialRelay(*relayURL, *room, *name)
	if err != nil {
		logger.Log.Fatalf("[peer] connect: %v", err)
	}

	if *name == "" {
		*name = game.DefaultName(tr.PeerID())
	}

	seed := time.Now().UnixNano()
	cfg := network.Config{
		Mode:      mode,
		Name:      *name,
		MatchSize: *size,
		FillBots:  *fill,
		NewDriver: func() network.Driver {
			seed++
			return bot.New(seed)
		},
		OnChat: func(_, who, text string) {
			logger.Log.Infof("[chat] %s: %s", who, text)
		},
	}
	if *botPlay {
		cfg.Controller = bot.New(seed)
	}

	sess := network.NewSession(cfg, tr, arena.Default(game.DefaultParams(mode).TileSize))
	go sess.Run()

	// Stdin lines go out as chat.
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if text := strings.TrimSpace(sc.Text()); text != "" {
				sess.SendChat(text)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Log.Info("[peer] shutting down")
	sess.Stop()
	tr.Close()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

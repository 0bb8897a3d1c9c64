package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stake-plus/sentinel/src/sentinel/bot"
	"github.com/stake-plus/sentinel/src/sentinel/config"
	"github.com/stake-plus/sentinel/src/sentinel/data"
	"github.com/stake-plus/sentinel/src/sentinel/webserver"
)

func main() {
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "sentinel:sentinel@tcp(127.0.0.1:3306)/sentinel"
	}
	db := data.MustMySQL(mysqlDSN)

	cfg := config.Load(db)
	if cfg.Token == "" {
		log.Fatal("discord_token not set in database or environment")
	}
	if cfg.GuildID == "" {
		log.Fatal("guild_id not set in database or environment")
	}

	rdb := data.MustRedis(cfg.RedisURL)

	b, err := bot.New(cfg, db, rdb)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if err := b.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	go func() {
		api := webserver.New(cfg, db, b.Stats())
		if err := api.Run(cfg.APIListenAddr); err != nil {
			log.Printf("api server: %v", err)
		}
	}()

	log.Println("Sentinel is running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	b.Stop()
	log.Println("Sentinel stopped gracefully")
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/data"
	"github.com/covert-ops/agency-comms/src/agency/types"
)

// OpsBot relays lifecycle events from the agency event stream into a
// Discord ops channel.
type OpsBot struct {
	session     *discordgo.Session
	rdb         *redis.Client
	db          *gorm.DB
	channelID   string
	frontendURL string
}

type StreamEvent struct {
	Kind    string
	Name    string
	Danger  string
	Country string
	Time    int64
}

func NewOpsBot(token, channelID, frontendURL string, rdb *redis.Client, db *gorm.DB) (*OpsBot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	bot := &OpsBot{
		session:     dg,
		rdb:         rdb,
		db:          db,
		channelID:   channelID,
		frontendURL: frontendURL,
	}

	dg.AddHandler(bot.handleReady)
	dg.Identify.Intents = discordgo.IntentsGuildMessages

	return bot, nil
}

func (b *OpsBot) Start() error {
	return b.session.Open()
}

func (b *OpsBot) Stop() error {
	return b.session.Close()
}

func (b *OpsBot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Ops bot logged in as %s", event.User.Username)
}

func (b *OpsBot) postEvent(ev StreamEvent) error {
	var embed *discordgo.MessageEmbed

	switch ev.Kind {
	case "agent_killed":
		embed = &discordgo.MessageEmbed{
			Title:       "Agent Killed in Action",
			Description: fmt.Sprintf("Agent **%s** has been killed in action.", ev.Name),
			Color:       0xcc0000,
			Timestamp:   time.Unix(ev.Time, 0).Format(time.RFC3339),
		}
	case "mission_created":
		countryName := ev.Country
		var country types.Country
		if err := b.db.First(&country, "id = ?", ev.Country).Error; err == nil {
			countryName = country.Name
		}
		embed = &discordgo.MessageEmbed{
			Title:       "New Mission Created",
			Description: fmt.Sprintf("Mission **%s** opened in %s (danger %s).", ev.Name, countryName, ev.Danger),
			Color:       0x0099ff,
			Timestamp:   time.Unix(ev.Time, 0).Format(time.RFC3339),
		}
	default:
		return nil
	}

	if b.frontendURL != "" {
		embed.Fields = []*discordgo.MessageEmbedField{
			{
				Name:  "Operations Console",
				Value: fmt.Sprintf("[Open console](%s)", b.frontendURL),
			},
		}
	}

	_, err := b.session.ChannelMessageSendEmbed(b.channelID, embed)
	return err
}

func (b *OpsBot) listenForEvents(ctx context.Context) {
	lastID := "$"

	for {
		select {
		case <-ctx.Done():
			return
		default:
			streams, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{"agency.events", lastID},
				Count:   10,
				Block:   5 * time.Second,
			}).Result()

			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					log.Printf("Error reading stream: %v", err)
				}
				continue
			}

			for _, stream := range streams {
				for _, msg := range stream.Messages {
					var ev StreamEvent

					if kind, ok := msg.Values["kind"].(string); ok {
						ev.Kind = kind
					}
					if name, ok := msg.Values["name"].(string); ok {
						ev.Name = name
					}
					if codeName, ok := msg.Values["codeName"].(string); ok {
						ev.Name = codeName
					}
					if danger, ok := msg.Values["danger"].(string); ok {
						ev.Danger = danger
					}
					if country, ok := msg.Values["country"].(string); ok {
						ev.Country = country
					}
					if ts, ok := msg.Values["time"].(string); ok {
						if v, err := strconv.ParseInt(ts, 10, 64); err == nil {
							ev.Time = v
						}
					}

					if err := b.postEvent(ev); err != nil {
						log.Printf("Failed to post to Discord: %v", err)
					} else {
						log.Printf("Posted %s event to Discord", ev.Kind)
					}

					lastID = msg.ID
				}
			}
		}
	}
}

func main() {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		log.Fatal("DISCORD_TOKEN not set")
	}

	channelID := os.Getenv("OPS_CHANNEL_ID")
	if channelID == "" {
		log.Fatal("OPS_CHANNEL_ID not set")
	}

	// The bot only relays; it has no use for the API's JWT secret, so it
	// reads its own env instead of config.Load.
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "agency:agency@tcp(localhost:3306)/agency"
	}
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	rdb := data.MustRedis(redisURL)
	db := data.MustMySQL(mysqlDSN)

	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}
	frontendURL := data.GetSetting("frontend_url")
	if frontendURL == "" {
		frontendURL = os.Getenv("FRONTEND_URL")
	}

	bot, err := NewOpsBot(token, channelID, frontendURL, rdb, db)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if err := bot.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	log.Println("Ops bot is running. Press CTRL-C to exit.")

	ctx, cancel := context.WithCancel(context.Background())
	go bot.listenForEvents(ctx)

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	cancel()
	bot.Stop()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"stockbot/src/config"
	"stockbot/src/i18n"
	"stockbot/src/notifications"
)

// Sends a test message to the configured chat, or lists chats the bot can see.
//
//	go run ./src/scripts/check_telegram [-discover]
func main() {
	discover := flag.Bool("discover", false, "list chats from pending bot updates instead of sending")
	flag.Parse()

	configPath, required := config.ConfigPath()
	botConfig, err := config.LoadFromPath(configPath, required)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	secrets, err := config.LoadSecrets()
	if err != nil {
		log.Fatalf("Failed to load secrets: %v", err)
	}
	if secrets.TelegramBotToken == "" {
		log.Fatalf("TELEGRAM_BOT_TOKEN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	notifier := notifications.NewTelegramNotifier(botConfig.Telegram, secrets.TelegramBotToken, secrets.TelegramChatID)

	if *discover {
		chats, err := notifier.DiscoverChats(ctx)
		if err != nil {
			log.Fatalf("Failed to read updates: %v", err)
		}
		if len(chats) == 0 {
			fmt.Println("No chats found. Post a message in the chat or channel, then run again.")
			return
		}
		for _, chat := range chats {
			fmt.Printf("%d\t%s\t%s\t%s\n", chat.Id, chat.Type, chat.Title, chat.Username)
		}
		return
	}

	if secrets.TelegramChatID == "" {
		log.Fatalf("TELEGRAM_CHAT_ID is not set; run with -discover to find it")
	}
	message := i18n.NewTranslator(botConfig.App.Locale).Get("notification.test_message")
	if !notifier.TestConnection(ctx, message) {
		log.Fatalf("Test message was not delivered to chat %s", secrets.TelegramChatID)
	}
	log.Printf("Test message delivered to chat %s", secrets.TelegramChatID)
}

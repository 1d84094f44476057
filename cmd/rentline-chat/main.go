package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"rentline/internal/app/dto"
	"rentline/internal/client/api"
	"rentline/internal/client/chat"
	"rentline/internal/client/session"
	"rentline/internal/infra/obs"
)

// rentline-chat is a terminal client for a single conversation: it logs in,
// opens the live channel for a property and relays typed lines until EOF.
func main() {
	var (
		baseURL    = flag.String("server", getenv("RENTLINE_SERVER", "http://localhost:8080"), "server base URL")
		email      = flag.String("email", os.Getenv("RENTLINE_EMAIL"), "account email")
		password   = flag.String("password", os.Getenv("RENTLINE_PASSWORD"), "account password")
		propertyID = flag.Int64("property", 0, "property id to chat about")
	)
	flag.Parse()

	logger := obs.NewLogger(getenv("APP_ENV", "prod"))

	if *email == "" || *password == "" || *propertyID == 0 {
		fmt.Fprintln(os.Stderr, "usage: rentline-chat -property <id> -email <email> -password <password> [-server <url>]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.NewStore()
	client := api.New(*baseURL, store,
		api.WithLogger(logger),
		api.WithLoggedOutHandler(func() {
			fmt.Fprintln(os.Stderr, "session expired, please log in again")
			stop()
		}),
	)

	auth, err := client.Login(ctx, api.LoginParams{Email: *email, Password: *password})
	if err != nil {
		fmt.Fprintln(os.Stderr, "login failed:", err)
		os.Exit(1)
	}
	selfID := auth.User.ID

	live := chat.New(client,
		chat.WithLogger(logger),
		chat.OnMessage(func(msg dto.Message) {
			printMessage(selfID, msg)
		}),
	)
	if err := live.Open(ctx, *propertyID); err != nil {
		fmt.Fprintln(os.Stderr, "cannot open conversation:", err)
		os.Exit(1)
	}
	defer live.Close()

	for _, msg := range live.Messages() {
		printMessage(selfID, msg)
	}
	fmt.Println("connected; type a message and press enter (ctrl-d to quit)")

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := live.Send(scanner.Text()); err != nil {
				fmt.Fprintln(os.Stderr, "send failed:", err)
				return
			}
		}
		stop()
	}()

	select {
	case <-ctx.Done():
	case <-live.Done():
		if err := live.Err(); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "connection lost:", err)
		}
	}
}

func printMessage(selfID int64, msg dto.Message) {
	who := fmt.Sprintf("user %d", msg.SenderID)
	if msg.SenderID == selfID {
		who = "you"
	}
	fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04"), who, strings.TrimRight(msg.Content, "\n"))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

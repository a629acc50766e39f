package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aryannishad-86/thriftgram/internal/account"
	"github.com/aryannishad-86/thriftgram/internal/cart"
	"github.com/aryannishad-86/thriftgram/internal/catalog"
	"github.com/aryannishad-86/thriftgram/internal/chat"
	"github.com/aryannishad-86/thriftgram/internal/checkout"
	"github.com/aryannishad-86/thriftgram/internal/feed"
	"github.com/aryannishad-86/thriftgram/internal/notifications"
	"github.com/aryannishad-86/thriftgram/internal/search"
	"github.com/aryannishad-86/thriftgram/internal/session"
	"github.com/aryannishad-86/thriftgram/internal/social"
	"github.com/aryannishad-86/thriftgram/internal/storage"
	"github.com/aryannishad-86/thriftgram/internal/wishlist"
	"github.com/aryannishad-86/thriftgram/pkg/config"
	"github.com/aryannishad-86/thriftgram/pkg/logger"
	"github.com/aryannishad-86/thriftgram/pkg/rest"
	"github.com/joho/godotenv"
)

const usage = `usage: thriftgram <command> [args]

commands:
  register <username> [email]  create an account
  login <username>        authenticate and save the session
  logout                  wipe the saved session
  whoami                  show the logged-in user
  feed [-q query] [...]   browse listings, enter loads the next page
  cart [show|add|remove|clear|checkout]
  orders                  list purchases and sales
  search [list|add|remove|clear]
  chat <conversation-id>  stream a conversation, type to send
  notifications           show the inbox, watch for pushes
  wishlist                list saved items
  leaderboard             show the eco-points ranking
`

type app struct {
	cfg     *config.Config
	logg    *logger.Logger
	store   storage.Store
	session *session.Manager
	api     *rest.Client
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "thriftgram"})

	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "thriftgram",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open local storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(ctx, "error closing local storage", err)
		}
	}()

	sessionManager, err := session.NewManager(store, logg)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}
	sessionManager.Load(ctx)

	api, err := rest.NewClient(rest.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout,
		SlowThreshold: cfg.API.SlowThreshold,
		TokenSource:   sessionManager,
		OnUnauthorized: func() {
			sessionManager.Clear(context.Background())
			fmt.Fprintln(os.Stderr, "session expired, please log in again")
		},
		OnSlowStart: func(slow bool) {
			if slow {
				fmt.Fprintln(os.Stderr, "still waiting, the backend may be waking up...")
			}
		},
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build api client", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, logg: logg, store: store, session: sessionManager, api: api}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var runErr error
	switch os.Args[1] {
	case "register":
		runErr = a.register(ctx, os.Args[2:])
	case "login":
		runErr = a.login(ctx, os.Args[2:])
	case "logout":
		a.session.Clear(ctx)
		fmt.Println("logged out")
	case "whoami":
		runErr = a.whoami(ctx)
	case "feed":
		runErr = a.feed(ctx, os.Args[2:])
	case "cart":
		runErr = a.cart(ctx, os.Args[2:])
	case "orders":
		runErr = a.orders(ctx)
	case "search":
		runErr = a.search(ctx, os.Args[2:])
	case "chat":
		runErr = a.chat(ctx, os.Args[2:])
	case "notifications":
		runErr = a.notifications(ctx)
	case "wishlist":
		runErr = a.wishlist(ctx)
	case "leaderboard":
		runErr = a.leaderboard(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if runErr != nil {
		logg.Error(ctx, "command failed", runErr)
		os.Exit(1)
	}
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: thriftgram register <username> [email]")
	}

	fmt.Fprint(os.Stderr, "password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	svc, err := account.NewService(a.api)
	if err != nil {
		return err
	}
	input := account.Input{Username: args[0], Password: password}
	if len(args) == 2 {
		input.Email = args[1]
	}
	if err := svc.Register(ctx, input); err != nil {
		return err
	}
	fmt.Printf("account created, log in with: thriftgram login %s\n", args[0])
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: thriftgram login <username>")
	}
	username := args[0]

	fmt.Fprint(os.Stderr, "password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	var pair tokenPair
	body := map[string]string{"username": username, "password": password}
	if err := a.api.Post(ctx, "/token/", body, &pair); err != nil {
		return err
	}

	if err := a.session.Set(ctx, session.Identity{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		Username:     username,
	}); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", username)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if !a.session.Authenticated() {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Println(a.session.Username())
	if a.session.ExpiresSoon(time.Now(), 5*time.Minute) {
		fmt.Println("(session expires soon, consider logging in again)")
	}
	return nil
}

func (a *app) feed(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("feed", flag.ExitOnError)
	query := flags.String("q", "", "search query")
	category := flags.String("category", "", "category filter")
	size := flags.String("size", "", "size filter")
	condition := flags.String("condition", "", "condition filter")
	if err := flags.Parse(args); err != nil {
		return err
	}

	catalogAPI, err := catalog.NewAPI(a.api)
	if err != nil {
		return err
	}
	loader, err := feed.NewLoader(catalogAPI, a.cfg.Feed.PageSize, a.logg)
	if err != nil {
		return err
	}

	if *query != "" {
		history, err := search.NewHistory(a.store, a.logg)
		if err != nil {
			return err
		}
		history.Load(ctx)
		history.Add(ctx, *query)
	}

	filters := catalog.Filters{
		Query:     *query,
		Category:  *category,
		Size:      *size,
		Condition: *condition,
	}
	if err := loader.SetFilters(ctx, filters); err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		printListings(loader.Items())
		if loader.Exhausted() {
			fmt.Println("-- end of feed --")
			return nil
		}

		fmt.Fprint(os.Stderr, "press enter for more, q to quit: ")
		line, err := reader.ReadString('\n')
		if err != nil || strings.TrimSpace(line) == "q" {
			return nil
		}
		if err := loader.LoadMore(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "load failed: %v (enter retries)\n", err)
		}
	}
}

func printListings(items []catalog.ListingSummary) {
	for _, item := range items {
		liked := " "
		if item.IsLiked {
			liked = "*"
		}
		fmt.Printf("%s #%-6d $%-8s %-10s %s (@%s)\n",
			liked, item.ID, item.Price, item.Size, item.Title, item.Seller.Username)
	}
}

func (a *app) cart(ctx context.Context, args []string) error {
	cartStore, err := cart.NewStore(a.store, a.logg)
	if err != nil {
		return err
	}
	cartStore.Load(ctx)

	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "show":
	case "add":
		if len(args) != 2 {
			return fmt.Errorf("usage: thriftgram cart add <item-id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[1])
		}

		catalogAPI, err := catalog.NewAPI(a.api)
		if err != nil {
			return err
		}
		listing, err := catalogAPI.Get(ctx, id)
		if err != nil {
			return err
		}
		cents, err := listing.PriceCents()
		if err != nil {
			return err
		}
		line := cart.Line{
			ID:             listing.ID,
			Title:          listing.Title,
			UnitPriceCents: cents,
			ImageURL:       listing.PrimaryImage(),
			Size:           listing.Size,
		}
		if err := cartStore.AddLine(ctx, line); err != nil {
			return err
		}
	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: thriftgram cart remove <item-id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[1])
		}
		cartStore.RemoveLine(ctx, id)
	case "clear":
		cartStore.Clear(ctx)
	case "checkout":
		if len(args) != 2 {
			return fmt.Errorf("usage: thriftgram cart checkout <item-id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[1])
		}
		svc, err := checkout.NewService(a.api)
		if err != nil {
			return err
		}
		redirect, err := svc.CreateSession(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("complete your purchase at:\n%s\n", redirect)
		return nil
	default:
		return fmt.Errorf("unknown cart command %q", sub)
	}

	for _, line := range cartStore.Lines() {
		fmt.Printf("#%-6d %-30s %s %s\n", line.ID, line.Title, line.Size, formatCents(line.UnitPriceCents))
	}
	fmt.Printf("total: %s\n", formatCents(cartStore.Total()))
	return nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func (a *app) orders(ctx context.Context) error {
	svc, err := checkout.NewService(a.api)
	if err != nil {
		return err
	}
	all, err := svc.Orders(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("no orders yet")
		return nil
	}

	purchases, sales := checkout.Split(all, a.session.Username())
	printOrders("purchases", purchases)
	printOrders("sales", sales)
	return nil
}

func printOrders(label string, orders []checkout.Order) {
	if len(orders) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for _, order := range orders {
		fmt.Printf("  #%-6d %-10s $%-8s %s (@%s)\n",
			order.ID, order.Status, order.TotalAmount, order.Item.Title, order.Item.Seller.Username)
	}
}

func (a *app) search(ctx context.Context, args []string) error {
	history, err := search.NewHistory(a.store, a.logg)
	if err != nil {
		return err
	}
	history.Load(ctx)

	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "list":
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: thriftgram search add <query>")
		}
		history.Add(ctx, strings.Join(args[1:], " "))
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: thriftgram search remove <query>")
		}
		history.Remove(ctx, strings.Join(args[1:], " "))
	case "clear":
		history.Clear(ctx)
	default:
		return fmt.Errorf("unknown search command %q", sub)
	}

	for _, entry := range history.List() {
		fmt.Println(entry)
	}
	return nil
}

func (a *app) chat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: thriftgram chat <conversation-id>")
	}
	conversationID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q", args[0])
	}

	client, err := chat.NewClient(a.api)
	if err != nil {
		return err
	}

	var stream chat.MessageStream
	if a.cfg.Chat.PushEnabled {
		stream, err = chat.NewChatStream(a.cfg.Chat.SocketURL, args[0], a.logg)
	} else {
		stream, err = chat.NewPollStream(client, conversationID, a.cfg.Chat.PollInterval, a.logg)
	}
	if err != nil {
		return err
	}

	thread := chat.NewThread()
	if messages, err := client.History(ctx, conversationID); err == nil {
		thread.Apply(chat.Event{Kind: chat.EventSnapshot, Messages: messages})
	}
	printThread(thread, a.session.Username())

	if err := stream.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "live updates unavailable: %v\n", err)
	} else {
		defer stream.Close()
		go func() {
			for event := range stream.Events() {
				thread.Apply(event)
				printThread(thread, a.session.Username())
			}
		}()
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		sent, err := client.Send(ctx, conversationID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			continue
		}
		thread.AppendLocal(*sent)
		printThread(thread, a.session.Username())
	}
}

func printThread(thread *chat.Thread, me string) {
	fmt.Print("\033[2J\033[H")
	for _, message := range thread.Messages() {
		name := message.Sender.Username
		if name == me {
			name = "you"
		}
		fmt.Printf("[%s] %s: %s\n", message.CreatedAt.Format("15:04"), name, message.Content)
	}
	fmt.Print("> ")
}

func (a *app) notifications(ctx context.Context) error {
	inbox, err := notifications.NewInbox(a.api)
	if err != nil {
		return err
	}
	if err := inbox.Refresh(ctx); err != nil {
		return err
	}
	printInbox(inbox)

	if !a.cfg.Chat.PushEnabled {
		return nil
	}

	stream, err := chat.NewNotificationStream(a.cfg.Chat.SocketURL, a.logg)
	if err != nil {
		return err
	}
	if err := stream.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "live notifications unavailable: %v\n", err)
		return nil
	}
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-stream.Events():
			if !ok {
				return nil
			}
			inbox.Apply(event)
			printInbox(inbox)
		}
	}
}

func printInbox(inbox *notifications.Inbox) {
	items := inbox.Items()
	if len(items) == 0 {
		fmt.Println("no notifications")
		return
	}
	fmt.Printf("%d notifications, %d unread\n", len(items), inbox.Unread())
	for _, item := range items {
		fmt.Printf("  [%-7s] %s\n", item.Type, item.Message)
	}
}

func (a *app) wishlist(ctx context.Context) error {
	svc, err := wishlist.NewService(a.api)
	if err != nil {
		return err
	}
	entries, err := svc.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("wishlist is empty")
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("#%-6d $%-8s %s (@%s)\n",
			entry.Item.ID, entry.Item.Price, entry.Item.Title, entry.Item.Seller.Username)
	}
	return nil
}

func (a *app) leaderboard(ctx context.Context) error {
	svc, err := social.NewService(a.api)
	if err != nil {
		return err
	}
	users, err := svc.Leaderboard(ctx)
	if err != nil {
		return err
	}
	for rank, user := range users {
		fmt.Printf("%2d. %-20s %6d pts  %.1fkg CO2  %.0fL water\n",
			rank+1, user.Username, user.EcoPoints, user.CO2Saved, user.WaterSaved)
	}
	return nil
}

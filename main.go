package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/foodiehq/storefront/client"
	"github.com/foodiehq/storefront/config"
	"github.com/foodiehq/storefront/mockapi"
	"github.com/foodiehq/storefront/models"
	"github.com/foodiehq/storefront/realtime"
	"github.com/foodiehq/storefront/repository"
	"github.com/foodiehq/storefront/tracker"
	"github.com/foodiehq/storefront/utils"
)

func init() {
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded .env file")
	}
	utils.InitLogger()
}

func main() {
	mock := flag.Bool("mock", false, "run the embedded mock backend instead of the tracking console")
	flag.Parse()

	if *mock {
		runMockBackend()
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: storefront [-mock] <order-id>")
		os.Exit(2)
	}
	runTrackingConsole(flag.Arg(0))
}

// runMockBackend serves the development backend on PORT.
func runMockBackend() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := gorm.Open(sqlite.Open("mockapi.db"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to open mock backend database: %v", err)
	}

	server, err := mockapi.NewServer(db)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to set up mock backend: %v", err)
	}

	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		if _, err := server.SeedUser("Admin", email, os.Getenv("ADMIN_PASSWORD"), models.RoleAdmin); err != nil {
			utils.ErrorLogger.Printf("Admin seed skipped: %v", err)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Mock backend listening on port %s", port)
	if err := server.Router().Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

// runTrackingConsole watches one order until it reaches a terminal
// status: initial fetch, 4s polling, and push notifications, all
// feeding a single display cell where the last observed record wins.
func runTrackingConsole(orderID string) {
	settings := config.Load()

	cacheDB, err := config.InitCacheDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to open local order cache: %v", err)
	}
	local, err := repository.NewLocalOrderRepository(cacheDB, settings.TableNumber)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to prepare local order cache: %v", err)
	}

	api := client.NewOrderAPI(settings.APIBaseURL, settings.Token)
	fetcher := tracker.NewFetcher(api, local)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	order, err := fetcher.Fetch(ctx, orderID)
	if err != nil {
		// Terminal state: neither the backend nor the cache knows the id.
		fmt.Printf("Order %s not found\n", orderID)
		os.Exit(1)
	}
	render(order)

	updates := make(chan *models.Order, 8)

	poller := tracker.NewPoller(fetcher, orderID, func(o *models.Order) {
		updates <- o
	})
	poller.SetInterval(settings.PollInterval)
	poller.Start(ctx)
	defer poller.Stop()

	viewer := sessionUser(settings.Token)
	notifier := &realtime.LogNotifier{}
	listener, err := realtime.Dial(ctx, settings.SocketURL, viewer, notifier)
	if err != nil {
		// Polling alone still keeps the view fresh.
		utils.ErrorLogger.Printf("Push channel unavailable, relying on polling: %v", err)
	} else {
		listener.OnOrderUpdate = func(event models.Order) {
			// Events are advisory: re-fetch through the pull path
			// instead of trusting the pushed fields.
			if !event.Matches(orderID) {
				return
			}
			if fresh, err := fetcher.Fetch(ctx, orderID); err == nil {
				updates <- fresh
			}
		}
		defer listener.Close()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case fresh := <-updates:
			if fresh.Status != order.Status {
				render(fresh)
			}
			order = fresh
			if order.Status.IsTerminal() {
				return
			}
		case <-sigs:
			return
		}
	}
}

// sessionUser rebuilds the viewer from the persisted session token.
func sessionUser(token string) *models.User {
	if token == "" {
		return nil
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil
	}
	return &models.User{ID: claims.UserID, Role: claims.Role}
}

// render prints the status timeline. Cancelled orders never map onto a
// timeline step; they get their own branch.
func render(order *models.Order) {
	fmt.Printf("\nOrder #%s (total %s)\n", order.OrderNumber, utils.FormatCurrency(order.Total))

	if order.Status.IsCancelled() {
		by := ""
		if order.CancelledBy == models.RoleAdmin {
			by = " by the restaurant"
		}
		fmt.Printf("  ✗ Order cancelled%s.\n", by)
		if order.CancellationReason != "" {
			fmt.Printf("    Reason: %s\n", order.CancellationReason)
		}
		return
	}

	current := models.StepIndex(order.Status)
	for i, step := range models.StatusSteps {
		marker := " "
		if i <= current {
			marker = "x"
		}
		pointer := ""
		if i == current {
			pointer = "  <- current"
		}
		fmt.Printf("  [%s] %s%s\n", marker, models.StepLabels[step], pointer)
	}
	if strings.TrimSpace(order.DeliveryAddress) != "" {
		fmt.Printf("  Deliver to: %s\n", order.DeliveryAddress)
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Shiroi-Max/koala-route/internal/bootstrap"
	"github.com/Shiroi-Max/koala-route/internal/config"
	"github.com/Shiroi-Max/koala-route/internal/observability/logging"
)

const serviceName = "koala-route-cli"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, "error"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	fmt.Println("Asistente de viajes KoalaRoute. Escribe 'salir' para terminar.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "salir") || strings.EqualFold(input, "exit") {
			break
		}

		turnCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		turn, err := app.Flow.Run(turnCtx, input)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Println(turn.Response)
	}

	if err := scanner.Err(); err != nil {
		log.Fatalf("read input: %v", err)
	}
}

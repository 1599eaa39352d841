package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlibekovAA/taskflow/backend/internal/authclient"
	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
)

func main() {
	home, _ := os.UserHomeDir()
	baseURL := flag.String("server", "http://localhost:5000", "auth service base URL")
	sessionPath := flag.String("session", filepath.Join(home, ".taskflow", "session.json"), "session file")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_DIR"), "authcli", os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	session := authclient.NewSession(authclient.NewFileStorage(*sessionPath))
	if err := session.Hydrate(); err != nil {
		log.Warnf("ignoring unreadable session file: %v", err)
	}

	client, err := authclient.New(authclient.Options{
		BaseURL: *baseURL,
		Session: session,
		Log:     log,
		OnReauthRequired: func(err error) {
			fmt.Println("Session expired, please log in again.")
		},
	})
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}

	app := &app{client: client, in: bufio.NewReader(os.Stdin), out: os.Stdout}
	app.run(context.Background())
}

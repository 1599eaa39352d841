package main

import (
	"context"
	"fmt"
	"os"

	"github.com/AlibekovAA/taskflow/backend/internal/common/bootstrap"
)

func main() {
	app, err := bootstrap.NewAuthApp(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "auth service failed to start: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	app.Run()
}

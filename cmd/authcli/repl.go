package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/AlibekovAA/taskflow/backend/internal/authclient"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type app struct {
	client *authclient.Client
	in     *bufio.Reader
	out    io.Writer
}

func (a *app) run(ctx context.Context) {
	for {
		fmt.Fprintf(a.out, "taskflow [%s]> ", a.status())
		line, err := a.in.ReadString('\n')
		if err != nil && line == "" {
			return
		}

		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}
		if cmd == "exit" || cmd == "quit" {
			return
		}
		if err := a.exec(ctx, cmd); err != nil {
			fmt.Fprintf(a.out, "error: %s\n", describe(err))
		}
	}
}

func (a *app) exec(ctx context.Context, cmd string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(a.out, "Available commands: register, login, profile, rename, logout, exit")
		return nil
	case "register":
		name, err := a.prompt("Name")
		if err != nil {
			return err
		}
		email, err := a.prompt("Email")
		if err != nil {
			return err
		}
		password, err := a.password()
		if err != nil {
			return err
		}
		user, err := a.client.Register(ctx, name, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Welcome, %s\n", user.Name)
		return nil
	case "login":
		email, err := a.prompt("Email")
		if err != nil {
			return err
		}
		password, err := a.password()
		if err != nil {
			return err
		}
		user, err := a.client.Login(ctx, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Welcome back, %s\n", user.Name)
		return nil
	case "profile":
		user, err := a.client.Profile(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s <%s> role=%s id=%s\n", user.Name, user.Email, user.Role, user.ID)
		return nil
	case "rename":
		name, err := a.prompt("New name")
		if err != nil {
			return err
		}
		user, err := a.client.UpdateProfile(ctx, authclient.ProfileUpdate{Name: &name})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Name changed to %s\n", user.Name)
		return nil
	case "logout":
		if err := a.client.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged out")
		return nil
	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}
}

func (a *app) status() string {
	if user, ok := a.client.Session().User(); ok && a.client.Session().Authenticated() {
		return user.Email
	}
	return "guest"
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) password() (string, error) {
	fmt.Fprint(a.out, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func describe(err error) string {
	var apiErr *authclient.APIError
	switch {
	case errors.Is(err, authclient.ErrReauthRequired):
		return "please log in again"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return err.Error()
	}
}

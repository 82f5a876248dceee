package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	New(ctx context.Context, title string) error
	Rename(ctx context.Context, id, title string) error
	Open(ctx context.Context, ref string) error
	History(ctx context.Context) error
	Say(ctx context.Context, text string) error
	Export(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: (l)ist, new [title], rename <id> <title>, open <id|#>, history, say <text>, export, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the GophChat CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF or
// when the user types "exit" or "quit".
//
//	Not logged in:
//	  - help           — show available commands
//	  - register       — create an account
//	  - login          — authenticate
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - list | l               — list conversations, newest first
//	  - new [title]            — start a conversation and open it
//	  - rename <id> <title>    — rename a conversation
//	  - open <id|#>            — open by id or by position in the last list
//	  - history                — print the open conversation
//	  - say <text>             — send a message; without text, read several lines
//	  - export                 — download and print the transcript
//	  - logout                 — forget the tokens
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("gc %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		if cmd == "" {
			continue
		}

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "l", "list":
			err = a.List(ctx)

		case "new":
			err = a.New(ctx, rest)

		case "rename":
			id, title, _ := strings.Cut(rest, " ")
			if id == "" || strings.TrimSpace(title) == "" {
				printlnFn("Usage: rename <id> <title>")
				continue
			}
			err = a.Rename(ctx, id, strings.TrimSpace(title))

		case "open":
			if rest == "" {
				printlnFn("Usage: open <id|#>")
				continue
			}
			err = a.Open(ctx, rest)

		case "history":
			err = a.History(ctx)

		case "say":
			err = a.Say(ctx, rest)

		case "export":
			err = a.Export(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

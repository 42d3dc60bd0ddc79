package main

import (
	"bufio"
	"chat-rooms/domain"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr string `envconfig:"SERVER_ADDR" default:"localhost:3000"`
	Username   string `envconfig:"USERNAME"`
	Colours    bool   `envconfig:"COLOURS" default:"true"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := envconfig.Process("chat", &cfg); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if !cfg.Colours {
		color.Disable()
	}

	stdin := bufio.NewScanner(os.Stdin)
	username := strings.TrimSpace(cfg.Username)
	for username == "" {
		fmt.Print("Enter your username: ")
		if !stdin.Scan() {
			return stdin.Err()
		}
		username = strings.TrimSpace(stdin.Text())
	}

	conn, err := net.Dial("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.ServerAddr, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintln(conn, username); err != nil {
		return err
	}
	color.Green.Printf("Connected to %s as %s\n", cfg.ServerAddr, username)
	printHelp()

	done := make(chan struct{})
	go func() {
		defer close(done)
		receive(conn, username)
	}()

	go func() {
		for stdin.Scan() {
			line := stdin.Text()
			if _, err := fmt.Fprintln(conn, line); err != nil {
				color.Red.Printf("Send failed: %v\n", err)
				return
			}
			if line == "/exit" {
				return
			}
		}
		// Stdin closed: stop writing so the server sees EOF.
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.CloseWrite()
		}
	}()

	<-done
	return nil
}

// receive renders server lines until the connection ends or the kick sentinel arrives.
func receive(r io.Reader, username string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == domain.KickSentinel:
			color.Yellow.Println("Your username was claimed by another connection. Bye!")
			return
		case line == domain.ExitNotice(username):
			color.Cyan.Println(line)
			return
		case isChatLine(line):
			color.Println(line)
		default:
			color.Cyan.Println(line)
		}
	}
	color.Yellow.Println("Disconnected from server.")
}

// isChatLine tells broadcast lines ("alice (room): hi") from server notices.
func isChatLine(line string) bool {
	open := strings.Index(line, " (")
	closing := strings.Index(line, "): ")
	return open > 0 && closing > open
}

func printHelp() {
	color.New(color.FgGray).Println(strings.Join([]string{
		"Commands:",
		"  /create <room>  create a room (or join it if it exists)",
		"  /join <room>    join an existing room",
		"  /leave          leave the current room",
		"  /list           list rooms",
		"  /exit           quit",
	}, "\n"))
}

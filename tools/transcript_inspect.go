package main

import (
	"chat-rooms/repositories"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "data/transcripts", "Path to the badger transcript store")
	room := flag.String("room", "", "Only show this room (all rooms when empty)")
	limit := flag.Int("limit", 0, "Show only the last N lines per room (0 = all)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	transcript := repositories.NewBadgerTranscript(db, logs.GetLoggerFromLevel(slog.LevelWarn))

	rooms := []string{*room}
	if *room == "" {
		if rooms, err = transcript.Rooms(); err != nil {
			log.Fatal(err)
		}
	}

	var last *int
	if *limit > 0 {
		last = limit
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Time", "ID", "Line"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, r := range rooms {
		records, err := transcript.History(r, last)
		if err != nil {
			log.Fatal(err)
		}
		for _, record := range records {
			table.Append([]string{
				record.Room,
				record.At.Format("2006-01-02 15:04:05"),
				record.ID.String()[:8],
				record.Line,
			})
		}
	}
	table.Render()
	fmt.Printf("%d room(s)\n", len(rooms))
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil && strings.Contains(err.Error(), "Log truncate required") {
		return nil, fmt.Errorf("store needs recovery, open it once with the server first: %w", err)
	}
	return db, err
}

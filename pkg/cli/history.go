package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/schemaflow/schemaflow/pkg/storage"
)

func newHistoryCommand() *Command {
	cmd := &Command{
		Name:        "history",
		Description: "Show the migration history of a schema source",
		Flags:       flag.NewFlagSet("history", flag.ExitOnError),
		Run:         runHistory,
	}

	cmd.Flags.String("source", "", "Schema source ID")
	cmd.Flags.Int("version", 0, "Show one version instead of the full history")
	cmd.Flags.String("server", "http://localhost:8080", "Server URL")

	return cmd
}

func runHistory(args []string) error {
	flags := flag.NewFlagSet("history", flag.ExitOnError)
	source := flags.String("source", "", "Schema source ID")
	version := flags.Int("version", 0, "Show one version instead of the full history")
	server := flags.String("server", "http://localhost:8080", "Server URL")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if *source == "" {
		return fmt.Errorf("-source is required")
	}

	url := fmt.Sprintf("%s/api/v1/history/%s", *server, *source)
	if *version > 0 {
		url = fmt.Sprintf("%s/%d", url, *version)
	}

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(msg))
	}

	if *version > 0 {
		var entry storage.HistoryEntry
		if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
			return fmt.Errorf("failed to decode history entry: %w", err)
		}
		printHistoryEntry(&entry)
		return nil
	}

	var listing struct {
		SourceID string                  `json:"source_id"`
		Entries  []*storage.HistoryEntry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return fmt.Errorf("failed to decode history: %w", err)
	}

	if len(listing.Entries) == 0 {
		fmt.Printf("No history for %s\n", *source)
		return nil
	}
	for _, entry := range listing.Entries {
		printHistoryEntry(entry)
	}
	return nil
}

func printHistoryEntry(entry *storage.HistoryEntry) {
	fmt.Printf("v%-4d %-12s plan=%s steps=%d records=%d applied=%s\n",
		entry.Version, entry.Dialect, entry.PlanID, entry.StepsApplied,
		entry.RecordsAffected, entry.AppliedAt.Format("2006-01-02 15:04:05"))
}

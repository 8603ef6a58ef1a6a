package cli

import (
	"flag"
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/evolution"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func newDiffCommand() *Command {
	cmd := &Command{
		Name:        "diff",
		Description: "Show the changes between two schema snapshots",
		Flags:       flag.NewFlagSet("diff", flag.ExitOnError),
		Run:         runDiff,
	}

	cmd.Flags.String("old", "", "Previous schema file (omit for a brand-new schema)")
	cmd.Flags.String("new", "", "New schema file")

	return cmd
}

// newService builds a local engine with no history store; the CLI computes
// diffs, validations and plans without a server.
func newService() (*evolution.Service, error) {
	return evolution.NewService(evolution.Options{})
}

// loadPair loads the optional old snapshot and the required new snapshot.
func loadPair(oldPath, newPath string) (*schema.Schema, *schema.Schema, error) {
	if newPath == "" {
		return nil, nil, fmt.Errorf("-new schema file is required")
	}

	var oldSchema *schema.Schema
	if oldPath != "" {
		var err error
		oldSchema, err = LoadSchema(oldPath)
		if err != nil {
			return nil, nil, err
		}
	}

	newSchema, err := LoadSchema(newPath)
	if err != nil {
		return nil, nil, err
	}
	return oldSchema, newSchema, nil
}

func runDiff(args []string) error {
	flags := flag.NewFlagSet("diff", flag.ExitOnError)
	oldPath := flags.String("old", "", "Previous schema file")
	newPath := flags.String("new", "", "New schema file")

	if err := flags.Parse(args); err != nil {
		return err
	}

	oldSchema, newSchema, err := loadPair(*oldPath, *newPath)
	if err != nil {
		return err
	}

	svc, err := newService()
	if err != nil {
		return err
	}

	changes := svc.Compare(oldSchema, newSchema)
	if len(changes) == 0 {
		fmt.Println("No changes detected")
		return nil
	}

	for _, c := range changes {
		marker := " "
		if c.Breaking {
			marker = "!"
		}
		fmt.Printf("%s %-17s %-20s %s\n", marker, c.Kind, c.FieldName, c.Description)
	}
	fmt.Printf("\n%d change(s); ! marks breaking changes\n", len(changes))
	return nil
}

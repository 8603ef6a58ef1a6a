package cli

import (
	"flag"
	"fmt"
)

func newValidateCommand() *Command {
	cmd := &Command{
		Name:        "validate",
		Description: "Validate a schema transition against its evolution strategy",
		Flags:       flag.NewFlagSet("validate", flag.ExitOnError),
		Run:         runValidate,
	}

	cmd.Flags.String("old", "", "Previous schema file (omit for a brand-new schema)")
	cmd.Flags.String("new", "", "New schema file")

	return cmd
}

func runValidate(args []string) error {
	flags := flag.NewFlagSet("validate", flag.ExitOnError)
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

	result := svc.Validate(oldSchema, newSchema)
	for _, issue := range result.Issues {
		severity := "warning"
		if issue.Breaking {
			severity = "breaking"
		}
		if issue.FieldName != "" {
			fmt.Printf("%-8s %-20s %s\n", severity, issue.FieldName, issue.Message)
		} else {
			fmt.Printf("%-8s %s\n", severity, issue.Message)
		}
	}

	if !result.Valid {
		return fmt.Errorf("transition violates the %s evolution strategy", newSchema.Strategy)
	}

	if result.RequiresMigration {
		fmt.Println("Transition is valid; a migration is required")
	} else {
		fmt.Println("Transition is valid")
	}
	return nil
}

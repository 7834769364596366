package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/webhook-ledger/fixtures"
)

/* validate-fixtures - Standalone CLI tool to validate a fixtures file
 * Usage: go run cmd/validate-fixtures/main.go [fixtures.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	fixturesFile := "fixtures.yaml"
	if len(os.Args) > 1 {
		fixturesFile = os.Args[1]
	}

	fmt.Printf("Validating fixtures file: %s\n", fixturesFile)
	fmt.Println(strings.Repeat("-", 50))

	loader := fixtures.NewLoader()
	if err := loader.Load(fixturesFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loaded := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d fixture(s):\n", len(loaded))

	for i, f := range loaded {
		fmt.Printf("\n%d. Fixture: %s\n", i+1, f.Name)
		fmt.Printf("   Source:  %s\n", f.Source)
		fmt.Printf("   Status:  %s\n", f.Status)
		if f.UserID != "" {
			fmt.Printf("   User:    %s\n", f.UserID)
		}
		if f.ErrorMessage != "" {
			fmt.Printf("   Error:   %s\n", f.ErrorMessage)
		}
		if f.Age > 0 {
			fmt.Printf("   Age:     %s\n", f.Age)
		}
	}

	fmt.Printf("\n✓ All fixtures are valid!\n")
	os.Exit(0)
}

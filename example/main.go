// Example program demonstrating the ledgit library API.
//
// Run from the repo root:
//
//	go run ./example/
//
// It creates a scratch repository in a temporary directory, commits a CSV
// file on two branches, merges them, and prints the resulting history.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/MyCarrier-DevOps/go-ledgit/pkg/ledgit"
)

func main() {
	dir, err := os.MkdirTemp("", "ledgit-example-")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	app, err := ledgit.New(ledgit.Options{
		AuthorName:  "Example",
		AuthorEmail: "example@ledgit.local",
		Verbosity:   "info",
		LogWriter:   os.Stderr,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if _, err := app.Init(ctx, dir); err != nil {
		log.Fatalf("init failed: %v", err)
	}

	write(dir, "prices.csv", "sku,price\nA1,10\nB2,20\n")
	commit(ctx, app, "Add prices", "prices.csv")

	if err := app.CreateBranch(ctx, "discounts", ""); err != nil {
		log.Fatal(err)
	}
	if err := app.Checkout(ctx, "discounts"); err != nil {
		log.Fatal(err)
	}
	write(dir, "discounts.csv", "sku,pct\nA1,5\n")
	commit(ctx, app, "", "discounts.csv")

	if err := app.Checkout(ctx, "main"); err != nil {
		log.Fatal(err)
	}
	write(dir, "prices.csv", "sku,price\nA1,11\nB2,20\n")
	commit(ctx, app, "Raise A1", "prices.csv")

	res, err := app.Merge(ctx, "discounts")
	if err != nil {
		log.Fatalf("merge failed: %v", err)
	}
	if !res.Success {
		log.Fatalf("unexpected conflicts: %v", res.Conflicts)
	}

	commits, err := app.Log(ctx, ledgit.LogOptions{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("=== History ===")
	for _, c := range commits {
		fmt.Printf("%s  %-8s %s\n", c.ShortSha(), c.Author, c.Subject())
	}
}

func write(dir, name, content string) {
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		log.Fatal(err)
	}
}

func commit(ctx context.Context, app *ledgit.App, message string, files ...string) {
	c, err := app.CommitWithSuggestedMessage(ctx, message, files)
	if err != nil {
		log.Fatalf("commit failed: %v", err)
	}
	fmt.Printf("committed %s %s\n", c.ShortSha(), c.Subject())
}

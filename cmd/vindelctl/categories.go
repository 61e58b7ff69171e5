package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/vindel10/vindel-api/internal/catalog"
)

func categoriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "List listing categories and credit packages",
		Action: func(ctx context.Context, c *cli.Command) error {
			renderCatalog(os.Stdout, catalog.Default())
			return nil
		},
	}
}

func renderCatalog(w io.Writer, cat *catalog.Catalog) {
	fmt.Fprintln(w, titleStyle.Render("Categories"))
	for _, c := range cat.Categories {
		fmt.Fprintf(w, "  %s %s\n", headingStyle.Render(c.Name), metaStyle.Render(c.Slug))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Credit packages"))
	for _, p := range cat.Packages {
		fmt.Fprintf(w, "  %s %s\n", headingStyle.Render(p.Name), metaStyle.Render(fmt.Sprintf("%s · %d credits · %d.%02d", p.ID, p.Credits, p.AmountMinor/100, p.AmountMinor%100)))
	}
}

package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/goenrichr/pkg/library"
)

// librariesCommand creates the libraries command.
func (c *CLI) librariesCommand() *cobra.Command {
	var (
		filter  string
		pick    bool
		refresh bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "libraries",
		Short: "List the gene set libraries Enrichr offers",
		Long: `List the gene set libraries Enrichr offers.

The catalog is cached for a day; use --refresh to refetch it. With --select
an interactive picker prints the chosen libraries as a value for
'goenrichr enrich -l'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLibraries(cmd.Context(), filter, pick, refresh, noCache)
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only show libraries containing this text")
	cmd.Flags().BoolVarP(&pick, "select", "s", false, "pick libraries interactively")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refetch the catalog")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the catalog cache")

	return cmd
}

func (c *CLI) runLibraries(ctx context.Context, filter string, pick, refresh, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	client := newClient(cfg)
	store := c.newCache(ctx, cfg, noCache)
	defer store.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, "Fetching library catalog...")
	spinner.Start()
	names, err := c.newResolver(client, store, cfg).Catalog(ctx, refresh)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Loaded %d libraries", len(names)))

	names = library.Filter(names, filter)

	if pick {
		return pickLibraries(ctx, names)
	}
	for _, n := range names {
		fmt.Println(n)
	}
	if len(names) == 0 {
		printInfo("No libraries match %q", filter)
	}
	return nil
}

func pickLibraries(ctx context.Context, names []string) error {
	final, err := tea.NewProgram(NewLibraryPicker(names), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("library picker: %w", err)
	}
	chosen := final.(LibraryPicker).Selected()
	if len(chosen) == 0 {
		printInfo("No libraries selected")
		return nil
	}

	joined := strings.Join(chosen, ",")
	printSuccess("Selected %d libraries", len(chosen))
	fmt.Println(joined)
	printNextStep("Run", "goenrichr enrich --genes <genes> -l "+joined)
	return nil
}

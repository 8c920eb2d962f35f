package sounds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/treeguard/woodpecker-go/internal/conf"
	"github.com/treeguard/woodpecker-go/internal/soundbank"
)

// Command creates the sound catalog inspection command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "sounds",
		Short: "List the reaction sound catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCatalog(settings)
		},
	}
}

// listCatalog scans the configured asset root and prints every category
// with its assets.
func listCatalog(settings *conf.Settings) error {
	catalog, err := soundbank.New(settings.Sounds.Path, settings.Sounds.Seed)
	if err != nil {
		return err
	}

	for _, category := range catalog.Categories() {
		assets, err := catalog.Assets(category)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d assets)\n", category, len(assets))
		for _, a := range assets {
			if a.Duration > 0 {
				fmt.Printf("  %s (%s)\n", a.Name, a.Duration)
			} else {
				fmt.Printf("  %s\n", a.Name)
			}
		}
	}
	fmt.Printf("total: %d assets in %d categories\n",
		catalog.TotalAssets(), len(catalog.Categories()))

	return nil
}

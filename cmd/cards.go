package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plotforge/plotforge/internal/cards"
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Manage character and world cards",
}

var cardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the project's cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEngine(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		list, err := e.cards.List(cmd.Context(), project)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No cards yet. Add one with `plotforge cards add`.")
			return nil
		}
		for _, card := range list {
			fmt.Printf("[%s] %s", card.Kind, card.Name)
			if len(card.Aliases) > 0 {
				fmt.Printf(" (aka %s)", strings.Join(card.Aliases, ", "))
			}
			fmt.Println()
			for _, field := range card.Fields {
				fmt.Printf("  %s: %s", field.Key, field.Value)
				if field.Stars > 0 {
					fmt.Printf(" %s", strings.Repeat("★", field.Stars))
				}
				fmt.Println()
			}
		}
		return nil
	},
}

var (
	cardKind    string
	cardAliases []string
	cardFields  []string
)

var cardsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a card",
	Long: `Adds a card, or replaces it when one with the same kind and name exists.
Fields use key=value or key=value:stars, where stars (0..5) marks how firmly
the field binds. World fields with 3+ stars become hard constraints in
memory packs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := cards.Kind(cardKind)
		if kind != cards.KindCharacter && kind != cards.KindWorld {
			return fmt.Errorf("--kind must be character or world")
		}
		fields, err := parseFields(cardFields)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEngine(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		card := &cards.Card{
			ProjectID: project,
			Kind:      kind,
			Name:      args[0],
			Aliases:   cardAliases,
			Fields:    fields,
		}
		if err := e.cards.Upsert(cmd.Context(), card); err != nil {
			return fmt.Errorf("saving card: %w", err)
		}
		fmt.Printf("Saved %s card %q with %d fields.\n", kind, card.Name, len(fields))
		return nil
	},
}

var cardsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := cards.Kind(cardKind)
		if kind != cards.KindCharacter && kind != cards.KindWorld {
			return fmt.Errorf("--kind must be character or world")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEngine(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		card, err := e.cards.Resolve(cmd.Context(), project, kind, args[0])
		if err != nil {
			return fmt.Errorf("resolving card: %w", err)
		}
		if card == nil {
			return fmt.Errorf("no %s card named %q", kind, args[0])
		}
		if err := e.cards.Delete(cmd.Context(), card.ID); err != nil {
			return fmt.Errorf("deleting card: %w", err)
		}
		fmt.Printf("Deleted %s card %q.\n", kind, args[0])
		return nil
	},
}

// parseFields turns key=value:stars flags into card fields.
func parseFields(raw []string) ([]cards.Field, error) {
	var fields []cards.Field
	for _, entry := range raw {
		key, rest, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("bad field %q: want key=value or key=value:stars", entry)
		}
		value := rest
		stars := 0
		if v, s, ok := strings.Cut(rest, ":"); ok {
			if n, err := strconv.Atoi(s); err == nil {
				if n < 0 || n > 5 {
					return nil, fmt.Errorf("bad field %q: stars must be 0..5", entry)
				}
				value = v
				stars = n
			}
		}
		fields = append(fields, cards.Field{Key: key, Value: value, Stars: stars})
	}
	return fields, nil
}

func init() {
	cardsAddCmd.Flags().StringVar(&cardKind, "kind", "character", "card kind: character or world")
	cardsAddCmd.Flags().StringSliceVar(&cardAliases, "alias", nil, "alias, repeatable")
	cardsAddCmd.Flags().StringSliceVar(&cardFields, "field", nil, "field as key=value or key=value:stars, repeatable")
	cardsDeleteCmd.Flags().StringVar(&cardKind, "kind", "character", "card kind: character or world")

	cardsCmd.AddCommand(cardsListCmd)
	cardsCmd.AddCommand(cardsAddCmd)
	cardsCmd.AddCommand(cardsDeleteCmd)
	rootCmd.AddCommand(cardsCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/myrjola/turnabout/internal/casedoc"
	"github.com/myrjola/turnabout/internal/entity"
	"github.com/myrjola/turnabout/internal/script"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var scriptGroup = &cobra.Group{ //nolint:gochecknoglobals // cobra command tree.
	ID:    "script",
	Title: "Script editing",
}

func init() {
	for _, cmd := range []*cobra.Command{blockAddCmd, blockEditCmd} {
		cmd.Flags().String("text", "", "dialogue text including markup and triggers")
		cmd.Flags().String("speaker", "", "character ID of the speaker")
		cmd.Flags().String("location", "", "location ID the block takes place at")
		cmd.Flags().String("kind", string(script.BlockScript), "script or narration")
		cmd.Flags().String("time", "", "time tag shown with the block")
		cmd.Flags().String("description", "", "editor note")
	}
	blockAddCmd.Flags().Int("at", -1, "insert position, appends when negative")
	blockAddCmd.Flags().String("id", "", "explicit block ID, generated when empty")
	blockCmd.AddCommand(blockAddCmd, blockEditCmd, blockMoveCmd, blockRemoveCmd, blockListCmd)
}

var blockCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:     "block",
	GroupID: "script",
	Short:   "Edit the text blocks of a day and phase",
	Long:    `DAY starts from 1. PHASE is investigation (i) or trial (t). INDEX starts from 0.`,
}

func applyBlockFlags(flags *pflag.FlagSet, b *script.TextBlock) {
	str := func(name string) (string, bool) {
		if !flags.Changed(name) {
			return "", false
		}
		v, _ := flags.GetString(name)
		return v, true
	}
	if v, ok := str("text"); ok {
		b.Text = v
	}
	if v, ok := str("speaker"); ok {
		b.Speaker = entity.CharacterID(v)
	}
	if v, ok := str("location"); ok {
		b.Location = entity.LocationID(v)
	}
	if v, ok := str("kind"); ok {
		b.Kind = script.BlockKind(v)
	}
	if v, ok := str("time"); ok {
		b.TimeTag = v
	}
	if v, ok := str("description"); ok {
		b.Description = v
	}
}

var blockAddCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "add DAY PHASE",
	Short: "Insert a block",
	Args:  cobra.ExactArgs(2), //nolint:mnd // DAY PHASE.
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetInt("at")
		id, _ := cmd.Flags().GetString("id")
		b := script.TextBlock{ID: script.BlockID(id)} //nolint:exhaustruct // filled from flags.
		applyBlockFlags(cmd.Flags(), &b)
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			s, err := scriptArgs(doc, args[0], args[1])
			if err != nil {
				return err
			}
			if at < 0 {
				at = s.Len()
			}
			newID, err := s.InsertBlock(at, b)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), newID)
			return nil
		})
	},
}

var blockEditCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "edit DAY PHASE INDEX",
	Short: "Change the fields of a block given as flags",
	Args:  cobra.ExactArgs(3), //nolint:mnd // DAY PHASE INDEX.
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[2])
		if err != nil {
			return err
		}
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			s, err := scriptArgs(doc, args[0], args[1])
			if err != nil {
				return err
			}
			b, err := s.Block(index)
			if err != nil {
				return err
			}
			applyBlockFlags(cmd.Flags(), &b)
			return s.UpdateBlock(index, b)
		})
	},
}

var blockMoveCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "move DAY PHASE FROM TO",
	Short: "Move a block within its script",
	Args:  cobra.ExactArgs(4), //nolint:mnd // DAY PHASE FROM TO.
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseIndex(args[2])
		if err != nil {
			return err
		}
		to, err := parseIndex(args[3])
		if err != nil {
			return err
		}
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			s, err := scriptArgs(doc, args[0], args[1])
			if err != nil {
				return err
			}
			return s.MoveBlock(from, to)
		})
	},
}

var blockRemoveCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "remove DAY PHASE INDEX",
	Short: "Remove a block",
	Args:  cobra.ExactArgs(3), //nolint:mnd // DAY PHASE INDEX.
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[2])
		if err != nil {
			return err
		}
		return app.edit(cmd.Context(), func(doc *casedoc.Document) error {
			s, err := scriptArgs(doc, args[0], args[1])
			if err != nil {
				return err
			}
			removed, err := s.RemoveBlock(index)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), removed.ID)
			return nil
		})
	},
}

var blockListCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra command tree.
	Use:   "list DAY PHASE",
	Short: "List the blocks of a script",
	Args:  cobra.ExactArgs(2), //nolint:mnd // DAY PHASE.
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := app.open(cmd.Context())
		if err != nil {
			return err
		}
		s, err := scriptArgs(doc, args[0], args[1])
		if err != nil {
			return err
		}
		for i, b := range s.Blocks() {
			speaker := string(b.Speaker)
			if speaker == "" {
				speaker = "-"
			}
			text := strings.ReplaceAll(b.Text, "\n", " ")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%3d %-10s %-8s %s\n", i, b.ID, speaker, text)
		}
		return nil
	},
}
